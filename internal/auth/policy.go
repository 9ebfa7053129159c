package auth

import (
	"fmt"
	"sort"
	"strings"
)

type Resource string

const (
	ResourceQuestion Resource = "question"
	ResourceAnswer   Resource = "answer"
	ResourceUser     Resource = "user"
)

type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

type Rule string

const (
	RuleOwnerOnly    Rule = "owner_only"
	RuleOwnerOrAdmin Rule = "owner_or_admin"
	RuleAdminOnly    Rule = "admin_only"
)

func (r Rule) valid() bool {
	switch r {
	case RuleOwnerOnly, RuleOwnerOrAdmin, RuleAdminOnly:
		return true
	default:
		return false
	}
}

type Permission struct {
	Resource Resource
	Action   Action
}

func (p Permission) String() string {
	return string(p.Resource) + "." + string(p.Action)
}

// Policy maps resource x action to the rule that gates it. Pairs missing from the table are denied.
type Policy map[Permission]Rule

// DefaultPolicy keeps the historical asymmetry: admins may delete any answer
// but may not edit answers nor touch questions they do not own.
func DefaultPolicy() Policy {
	return Policy{
		{ResourceQuestion, ActionEdit}:   RuleOwnerOnly,
		{ResourceQuestion, ActionDelete}: RuleOwnerOnly,
		{ResourceAnswer, ActionEdit}:     RuleOwnerOnly,
		{ResourceAnswer, ActionDelete}:   RuleOwnerOrAdmin,
		{ResourceUser, ActionDelete}:     RuleAdminOnly,
	}
}

func (p Policy) Rule(res Resource, act Action) (Rule, bool) {
	r, ok := p[Permission{Resource: res, Action: act}]
	return r, ok
}

func (p Policy) clone() Policy {
	out := make(Policy, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders the table as "resource.action=rule" pairs in a stable order.
func (p Policy) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k.String()+"="+string(v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ParsePolicy reads overrides of the form "question.delete=owner_or_admin,answer.edit=owner_only"
// and merges them over DefaultPolicy. An empty string yields the default table.
func ParsePolicy(s string) (Policy, error) {
	p := DefaultPolicy()

	s = strings.TrimSpace(s)
	if s == "" {
		return p, nil
	}

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		key, val, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("policy entry %q: missing '='", entry)
		}

		res, act, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok {
			return nil, fmt.Errorf("policy entry %q: key must be resource.action", entry)
		}

		perm := Permission{Resource: Resource(res), Action: Action(act)}
		switch perm.Resource {
		case ResourceQuestion, ResourceAnswer, ResourceUser:
		default:
			return nil, fmt.Errorf("policy entry %q: unknown resource %q", entry, res)
		}
		switch perm.Action {
		case ActionEdit, ActionDelete:
		default:
			return nil, fmt.Errorf("policy entry %q: unknown action %q", entry, act)
		}

		rule := Rule(strings.TrimSpace(val))
		if !rule.valid() {
			return nil, fmt.Errorf("policy entry %q: unknown rule %q", entry, val)
		}

		p[perm] = rule
	}

	return p, nil
}
