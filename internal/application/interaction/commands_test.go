package interaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/cligent-go/internal/domain"
)

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("plain input is not a command", func(t *testing.T) {
		h := newHarness(t, testConfig())
		result, err := h.loop.HandleCommand(ctx, "list files")
		require.NoError(t, err)
		assert.False(t, result.Handled)
	})

	t.Run("mode toggles and persists", func(t *testing.T) {
		h := newHarness(t, testConfig())
		result, err := h.loop.HandleCommand(ctx, "/mode")
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.Equal(t, domain.ModeAsk, h.loop.Mode())
		assert.Equal(t, domain.ModeAsk, h.config.cfg.Mode)

		_, err = h.loop.HandleCommand(ctx, "/MODE")
		require.NoError(t, err)
		assert.Equal(t, domain.ModeWork, h.loop.Mode())
		assert.Equal(t, 2, h.config.saves)
	})

	t.Run("model cycles through enabled pairs", func(t *testing.T) {
		h := newHarness(t, testConfig())
		want := []domain.Selection{
			{ProviderID: "claude", ModelID: "claude-3-5-haiku-20241022"},
			{ProviderID: "deepseek", ModelID: "deepseek-chat"},
			{ProviderID: "claude", ModelID: "claude-sonnet-4-20250514"},
		}
		for _, sel := range want {
			_, err := h.loop.HandleCommand(ctx, "/model")
			require.NoError(t, err)
			assert.Equal(t, sel, h.loop.Selection())
			assert.Equal(t, sel, h.config.cfg.Selection)
		}
	})

	t.Run("model with a single pair does not save", func(t *testing.T) {
		cfg := testConfig()
		cfg.Providers = cfg.Providers[1:]
		h := newHarness(t, cfg)
		_, err := h.loop.HandleCommand(ctx, "/model")
		require.NoError(t, err)
		assert.Zero(t, h.config.saves)
		assert.Equal(t, "deepseek-chat", h.loop.Selection().ModelID)
	})

	t.Run("new turns use the switched model", func(t *testing.T) {
		h := newHarness(t, testConfig(), scriptedReply{text: planReply("direct", "hi")})
		_, err := h.loop.HandleCommand(ctx, "/model")
		require.NoError(t, err)
		turn, err := h.loop.Submit(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-haiku-20241022", turn.ModelID)
	})

	t.Run("history opens the browser", func(t *testing.T) {
		h := newHarness(t, testConfig())
		result, err := h.loop.HandleCommand(ctx, "/history")
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.Equal(t, 1, h.display.browsed)
	})

	t.Run("quit", func(t *testing.T) {
		h := newHarness(t, testConfig())
		for _, line := range []string{"/quit", "/exit"} {
			result, err := h.loop.HandleCommand(ctx, line)
			require.NoError(t, err)
			assert.True(t, result.Quit)
		}
	})

	t.Run("unknown command warns", func(t *testing.T) {
		h := newHarness(t, testConfig())
		result, err := h.loop.HandleCommand(ctx, "/frobnicate now")
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.False(t, result.Quit)
		require.NotEmpty(t, h.display.messages)
		assert.Contains(t, h.display.messages[len(h.display.messages)-1], "Unknown command /frobnicate")
	})
}
