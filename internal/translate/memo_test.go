// translate/memo_test.go
package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWorkOrderRef(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		prefix     string
		autoPrefix bool
		want       string
	}{
		{"bare number auto-prefixed", "1042", "WO-", true, "WO-1042"},
		{"bare number without auto-prefix", "1042", "WO-", false, "1042"},
		{"lowercase prefix canonicalized", "wo-1042", "WO-", false, "WO-1042"},
		{"already canonical", "WO-1042", "WO-", true, "WO-1042"},
		{"foreign prefix untouched", "JOB-7", "WO-", true, "JOB-7"},
		{"empty token", "  ", "WO-", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWorkOrderRef(tt.token, tt.prefix, tt.autoPrefix))
		})
	}
}

func TestExtractWorkOrderRefs(t *testing.T) {
	known := map[string]bool{"WO-1042": true, "WO-1043": true}
	exists := func(ref string) bool { return known[ref] }

	result := ExtractWorkOrderRefs("completed 1042 and wo-1043, see also 9999", "WO-", true, exists)

	assert.Equal(t, []string{"WO-1042", "WO-1043"}, result.Matched)
	assert.Equal(t, []string{"WO-9999"}, result.Unmatched)
}

func TestExtractWorkOrderRefsDeduplicates(t *testing.T) {
	exists := func(ref string) bool { return true }

	result := ExtractWorkOrderRefs("1042 again 1042 and WO-1042", "WO-", true, exists)
	assert.Equal(t, []string{"WO-1042"}, result.Matched)
}

func TestExtractWorkOrderRefsEmptyMemo(t *testing.T) {
	result := ExtractWorkOrderRefs("", "WO-", true, nil)
	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Unmatched)
}

func TestJoinWorkOrderRefs(t *testing.T) {
	joined := JoinWorkOrderRefs([]string{"1042", "wo-1043", "1042"}, "WO-", true)
	assert.Equal(t, "WO-1042 WO-1043", joined)
	assert.Empty(t, JoinWorkOrderRefs(nil, "WO-", true))
}
