package service

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var remarkSanitizer = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
})

// sanitizeRemark strips markup and normalizes the remark to NFC. Characters
// outside the remark alphabet are left for the builder to reject.
func sanitizeRemark(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	cleaned := html.UnescapeString(remarkSanitizer().Sanitize(trimmed))
	return strings.Join(strings.Fields(norm.NFC.String(cleaned)), " ")
}
