package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"no rules includes everything", nil, nil, "a/b/c.go", true},
		{"include match", []string{"**/*.go"}, nil, "internal/x.go", true},
		{"include miss", []string{"**/*.go"}, nil, "README.md", false},
		{"exclude wins over include", []string{"**/*.go"}, []string{"vendor/**"}, "vendor/x/y.go", false},
		{"excluded without include rules", nil, []string{"dist/**"}, "dist/app.js", false},
		{"not excluded without include rules", nil, []string{"dist/**"}, "src/app.js", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(tt.path))
		})
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]string{"[unclosed"}, nil)
	assert.Error(t, err)
}
