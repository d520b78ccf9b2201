package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"essay-tutor-backend/utilities"
)

const maxDumpBody = 64 << 10

// RequestDumpMiddleware logs every request at debug level. Credentials in
// headers and in top-level JSON body fields are masked.
func RequestDumpMiddleware(log *utilities.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxDumpBody))
			rest := c.Request.Body
			c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(bodyBytes), rest), rest}
		}

		log.Debug("request dump",
			"method", c.Request.Method,
			"url", c.Request.URL.String(),
			"headers", maskHeaders(c.Request.Header),
			"params", c.Params,
			"body", maskBody(bodyBytes),
		)

		c.Next()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func maskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if utilities.IsSecretKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return "[non-JSON body]"
	}
	for k := range fields {
		if utilities.IsSecretKey(k) {
			fields[k] = "[REDACTED]"
		}
	}
	masked, err := json.Marshal(fields)
	if err != nil {
		return "[unprintable body]"
	}
	return string(masked)
}
