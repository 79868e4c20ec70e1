package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		want    CommandMsg
		wantErr string
	}{
		{line: "import ~/contacts.vcf", want: CommandMsg{Name: Import, Arg: "~/contacts.vcf"}},
		{line: "  EXPORT out.vcf ", want: CommandMsg{Name: Export, Arg: "out.vcf"}},
		{line: "h", want: CommandMsg{Name: Harvest}},
		{line: "compose jo@example.com, ann@example.com", want: CommandMsg{Name: Compose, Arg: "jo@example.com, ann@example.com"}},
		{line: "set", want: CommandMsg{Name: Settings}},
		{line: "o", wantErr: "ambiguous"},
		{line: "import", wantErr: "usage"},
		{line: "frobnicate", wantErr: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 20)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("quit")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Name: Quit}, cmd())
	assert.Empty(t, m.input.Value())
}

func TestEnterKeepsLineOnError(t *testing.T) {
	m := New(80, 20)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("nope")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "nope", m.input.Value())
	assert.Contains(t, m.View(), "unknown command")
}
