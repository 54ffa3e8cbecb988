package tts

import (
	"context"
	"errors"
	"testing"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Провал инициализации клиента не должен кэшироваться: следующий вызов
// обязан повторить попытку, иначе один отмененный контекст выводит
// провайдера из строя до рестарта.
func TestGoogleProvider_FailedClientInitRetried(t *testing.T) {
	initCalls := 0
	p := NewGoogleProvider("", 0)
	p.newClient = func(ctx context.Context) (*texttospeech.Client, error) {
		initCalls++
		return nil, errors.New("credentials unavailable")
	}

	_, _, err := p.GenerateAudio(context.Background(), "text", "en", SynthesisOptions{})
	require.Error(t, err)

	_, _, err = p.GenerateAudio(context.Background(), "text", "en", SynthesisOptions{})
	require.Error(t, err)

	assert.Equal(t, 2, initCalls, "каждый вызов повторяет инициализацию после провала")
}

func TestSplitIntoChunks(t *testing.T) {
	chunks := splitIntoChunks("абвгд", 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, "аб", chunks[0])
	assert.Equal(t, "вг", chunks[1])
	assert.Equal(t, "д", chunks[2])

	assert.Len(t, splitIntoChunks("short", googleChunkLimit), 1)
}
