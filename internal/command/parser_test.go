package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/hookrelay/internal/core"
)

func TestParse_GenerateVariants(t *testing.T) {
	p := NewParser("reelforge")

	// Every documented invocation variant parses to the same command kind.
	variants := []string{
		"@reelforge changelog",
		"@reelforge-changelog",
		"@reelforgechangelog",
		"generate a changelog video",
		"Hey, could you @Reelforge Changelog this one?",
		"Please Generate A Changelog Video for this release",
	}
	for _, body := range variants {
		cmd := p.Parse(body)
		require.NotNil(t, cmd, "variant %q did not parse", body)
		assert.Equal(t, core.CommandGenerate, cmd.Kind, "variant %q", body)
	}
}

func TestParse_Commands(t *testing.T) {
	p := NewParser("reelforge")

	tests := []struct {
		name       string
		body       string
		wantKind   core.CommandKind
		wantTarget string
		wantQuery  string
	}{
		{
			name: "showcase with target",
			body: "@reelforge showcase intro-scene please", wantKind: core.CommandShowcase, wantTarget: "intro-scene",
		},
		{
			name: "showcase without target",
			body: "@reelforge showcase", wantKind: core.CommandShowcase,
		},
		{
			name: "demo with target",
			body: "@reelforge demo dashboard", wantKind: core.CommandDemo, wantTarget: "dashboard",
		},
		{
			name: "search keeps the remainder of the line",
			body: "@reelforge search onboarding flow animations", wantKind: core.CommandSearch, wantQuery: "onboarding flow animations",
		},
		{
			name: "search stops at line break",
			body: "@reelforge search onboarding flow\nunrelated second line", wantKind: core.CommandSearch, wantQuery: "onboarding flow",
		},
		{
			name: "list",
			body: "@reelforge list", wantKind: core.CommandList,
		},
		{
			name: "hyphenated demo",
			body: "@reelforge-demo checkout", wantKind: core.CommandDemo, wantTarget: "checkout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Parse(tt.body)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.wantKind, cmd.Kind)
			assert.Equal(t, tt.wantTarget, cmd.Target)
			assert.Equal(t, tt.wantQuery, cmd.Query)
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	p := NewParser("reelforge")

	// When several trigger phrases appear in one comment the table order
	// decides: generate > showcase > demo > search > list.
	tests := []struct {
		name string
		body string
		want core.CommandKind
	}{
		{
			name: "generate beats showcase",
			body: "@reelforge showcase intro\nalso @reelforge changelog",
			want: core.CommandGenerate,
		},
		{
			name: "showcase beats search",
			body: "@reelforge search foo and @reelforge showcase bar",
			want: core.CommandShowcase,
		},
		{
			name: "search beats list",
			body: "@reelforge list\n@reelforge search foo",
			want: core.CommandSearch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Parse(tt.body)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd.Kind)
		})
	}
}

func TestParse_UnicodeSurroundingText(t *testing.T) {
	p := NewParser("reelforge")

	// Comment text around the trigger phrase may contain runes whose
	// lowercase form has a different byte length (Ⱥ grows 2->3, İ shrinks
	// 2->1). Argument extraction must stay anchored to the original body.
	tests := []struct {
		name       string
		body       string
		wantKind   core.CommandKind
		wantTarget string
		wantQuery  string
	}{
		{
			name: "growing runes before the phrase",
			body: "ȺȺȺȺ@reelforge demo dashboard", wantKind: core.CommandDemo, wantTarget: "dashboard",
		},
		{
			name: "shrinking runes before the phrase",
			body: "İİİİ@reelforge demo introvideo", wantKind: core.CommandDemo, wantTarget: "introvideo",
		},
		{
			name: "growing runes before a trailing-argument phrase",
			body: "ȺȺȺȺ @reelforge search onboarding flow", wantKind: core.CommandSearch, wantQuery: "onboarding flow",
		},
		{
			name: "emoji and mixed case around the phrase",
			body: "🎬 great release! @ReelForge Showcase checkout 🎬", wantKind: core.CommandShowcase, wantTarget: "checkout",
		},
		{
			name: "growing runes with no arguments",
			body: "ȺȺȺȺ@reelforge demo", wantKind: core.CommandDemo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Parse(tt.body)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.wantKind, cmd.Kind)
			assert.Equal(t, tt.wantTarget, cmd.Target)
			assert.Equal(t, tt.wantQuery, cmd.Query)
		})
	}
}

func TestParse_NoCommand(t *testing.T) {
	p := NewParser("reelforge")

	for _, body := range []string{
		"",
		"LGTM, merging",
		"the changelog looks fine to me",
		"@otherbot changelog",
	} {
		assert.Nil(t, p.Parse(body), "body %q", body)
	}
}

func TestNewParser_NormalizesHandle(t *testing.T) {
	// A handle given with the @ already attached must behave identically.
	p := NewParser("@ReelForge")
	cmd := p.Parse("@reelforge changelog")
	require.NotNil(t, cmd)
	assert.Equal(t, core.CommandGenerate, cmd.Kind)
}
