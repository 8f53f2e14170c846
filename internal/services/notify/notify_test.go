package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/models"
)

type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func TestPublisher_SendCode(t *testing.T) {
	ch := new(ChannelMock)
	ch.On("Publish", "notifications", "credentials", false, false, mock.MatchedBy(func(p amqp.Publishing) bool {
		var got models.CodeMessage
		return json.Unmarshal(p.Body, &got) == nil && got.Email == "a@example.com" && got.Code == "123456"
	})).Return(nil)

	p := NewPublisher(ch, "notifications", "credentials", slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.SendCode(context.Background(), models.CodeMessage{
				Email: "a@example.com", Code: "123456", Purpose: models.PurposeSignup,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	ch.AssertNumberOfCalls(t, "Publish", 5)
}

func TestPublisher_Errors(t *testing.T) {
	ch := new(ChannelMock)
	ch.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).Return(amqp.ErrClosed)
	p := NewPublisher(ch, "ex", "rk", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := p.SendCode(context.Background(), models.CodeMessage{Email: "a@example.com"})
	require.ErrorIs(t, err, amqp.ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.SendCode(ctx, models.CodeMessage{Email: "a@example.com"})
	require.ErrorIs(t, err, context.Canceled)
	ch.AssertNumberOfCalls(t, "Publish", 1)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.SendCode(context.Background(), models.CodeMessage{
		Email: "a@example.com", Code: "654321", Purpose: models.PurposeReset, ExpiresAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "code=654321")
	assert.Contains(t, buf.String(), "purpose=reset")
}
