package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag answers reads with a weak validator scoped to the caller.
// Reads are token gated, so shared caches must not reuse them across users.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	viewer := ""
	if au, ok := authUserIfAny(ctx); ok {
		viewer = au
	}

	etag, err := viewerETag(viewer, payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)
	ctx.Header("Vary", "Authorization")
	ctx.Header("Cache-Control", "private, no-cache")

	if matchesAny(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func viewerETag(viewer string, payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(viewer))
	h.Write([]byte{0})
	h.Write(b)

	return `W/"` + base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:18]) + `"`, nil
}

func matchesAny(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := opaqueTag(etag)
	for _, candidate := range strings.Split(header, ",") {
		if opaqueTag(candidate) == want {
			return true
		}
	}
	return false
}

// opaqueTag drops the weak prefix; If-None-Match uses weak comparison.
func opaqueTag(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimPrefix(v, "W/")
}
