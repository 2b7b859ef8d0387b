package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	vars := Vars{
		"nameserver": "10.0.0.1",
		"lab_domain": "lab.example.com",
		"username":   "ops",
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "echo nameserver {nameserver}",
			expected: "echo nameserver 10.0.0.1",
		},
		{
			name:     "multiple placeholders",
			template: "echo search {lab_domain} > /etc/resolv.conf && echo nameserver {nameserver} >> /etc/resolv.conf",
			expected: "echo search lab.example.com > /etc/resolv.conf && echo nameserver 10.0.0.1 >> /etc/resolv.conf",
		},
		{
			name:     "repeated placeholder",
			template: "{username}:{username}",
			expected: "ops:ops",
		},
		{
			name:     "no placeholders",
			template: "zypper -n refresh",
			expected: "zypper -n refresh",
		},
		{
			name:     "empty braces pass through",
			template: "find /tmp -name '*.log' -exec rm {} \\;",
			expected: "find /tmp -name '*.log' -exec rm {} \\;",
		},
		{
			name:     "shell expansion passes through",
			template: "echo ${HOME} and {username}",
			expected: "echo ${HOME} and ops",
		},
		{
			name:     "multi-word braces pass through",
			template: "awk '{print $1}' /etc/hosts",
			expected: "awk '{print $1}' /etc/hosts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.template, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStringUnbound(t *testing.T) {
	_, err := String("echo {missing}", Vars{"present": "x"})
	require.Error(t, err)

	var unbound *UnboundPlaceholderError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, "missing", unbound.Name)
	assert.Equal(t, "unbound placeholder {missing}", unbound.Error())
}

func TestStringReportsFirstUnbound(t *testing.T) {
	_, err := String("{first} {second}", Vars{})
	require.Error(t, err)

	var unbound *UnboundPlaceholderError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, "first", unbound.Name)
}

func TestStringIdempotent(t *testing.T) {
	vars := Vars{"nameserver": "10.0.0.1", "lab_domain": "lab.example.com"}
	templates := []string{
		"echo nameserver {nameserver}",
		"hostname {lab_domain}",
		"no placeholders at all",
	}

	for _, template := range templates {
		once, err := String(template, vars)
		require.NoError(t, err)

		twice, err := String(once, vars)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "rendering must be idempotent for %q", template)
	}
}

func TestStrings(t *testing.T) {
	vars := Vars{"up": "42.1"}

	out, err := Strings([]string{"uptime: {up}", "plain"}, vars)
	require.NoError(t, err)
	assert.Equal(t, []string{"uptime: 42.1", "plain"}, out)

	_, err = Strings([]string{"ok", "{nope}"}, vars)
	require.Error(t, err)

	out, err = Strings(nil, vars)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{a} {b} {a} {c_1} {NOT} {}")
	assert.Equal(t, []string{"a", "b", "c_1"}, names)

	assert.Nil(t, Placeholders("nothing here"))
}

func TestMerge(t *testing.T) {
	merged := Merge(
		Vars{"a": "1", "b": "2"},
		Vars{"b": "override", "c": "3"},
	)
	assert.Equal(t, Vars{"a": "1", "b": "override", "c": "3"}, merged)
}
