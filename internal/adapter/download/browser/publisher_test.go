package browser

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/ffpoc/internal/adapter/blob/memory"
	"github.com/bnema/ffpoc/internal/domain"
	"github.com/bnema/ffpoc/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_TriggerAnnouncesAndServesOnce(t *testing.T) {
	blobs := memory.NewStore()
	bus := service.NewEventBus()
	ch := bus.Subscribe(service.SessionTopic)
	p := NewPublisher(blobs, bus, time.Minute)

	blob, err := blobs.Create([]byte("ID3audio"), domain.AudioMIME)
	require.NoError(t, err)
	require.NoError(t, p.Trigger(context.Background(), blob, "extracted_audio.mp3"))

	select {
	case e := <-ch:
		assert.Equal(t, service.EventDownload, e.Type)
		assert.Equal(t, "extracted_audio.mp3", e.Filename)
		assert.Equal(t, URL(blob.Ref), e.URL)
	default:
		t.Fatal("expected a download event")
	}
	assert.Equal(t, 1, p.Pending())

	got, data, name, err := p.Claim(blob.Ref)
	require.NoError(t, err)
	assert.Equal(t, blob.Ref, got.Ref)
	assert.Equal(t, []byte("ID3audio"), data)
	assert.Equal(t, "extracted_audio.mp3", name)

	_, _, _, err = p.Claim(blob.Ref)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.Zero(t, blobs.Len())
	assert.Zero(t, p.Pending())
}

func TestPublisher_ExpiresUnclaimedDownloads(t *testing.T) {
	blobs := memory.NewStore()
	bus := service.NewEventBus()
	bus.Subscribe(service.SessionTopic)
	p := NewPublisher(blobs, bus, 20*time.Millisecond)

	blob, err := blobs.Create([]byte("ID3"), domain.AudioMIME)
	require.NoError(t, err)
	require.NoError(t, p.Trigger(context.Background(), blob, "compressed.mp3"))

	require.Eventually(t, func() bool {
		return blobs.Len() == 0 && p.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	_, _, _, err = p.Claim(blob.Ref)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestPublisher_FailsWhenNoPageReceivesTheEvent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(bus *service.EventBus)
	}{
		{
			name:  "no page connected",
			setup: func(*service.EventBus) {},
		},
		{
			name: "only page is backed up with log lines",
			setup: func(bus *service.EventBus) {
				ch := bus.Subscribe(service.SessionTopic)
				for i := 0; i < cap(ch); i++ {
					bus.Publish(service.SessionTopic, service.Event{Type: service.EventLog, Seq: int64(i + 1)})
				}
				require.Len(t, ch, cap(ch))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := memory.NewStore()
			bus := service.NewEventBus(service.WithDeliveryWait(10 * time.Millisecond))
			tt.setup(bus)
			p := NewPublisher(blobs, bus, time.Minute)

			blob, err := blobs.Create([]byte("ID3"), domain.AudioMIME)
			require.NoError(t, err)

			assert.ErrorIs(t, p.Trigger(context.Background(), blob, "extracted_audio.mp3"), ErrNoSubscribers)
			assert.Zero(t, p.Pending())
			_, _, _, err = p.Claim(blob.Ref)
			assert.ErrorIs(t, err, domain.ErrBlobNotFound)
		})
	}
}

func TestPublisher_DeliversToPageThatDrainsInTime(t *testing.T) {
	blobs := memory.NewStore()
	bus := service.NewEventBus(service.WithDeliveryWait(time.Second))
	ch := bus.Subscribe(service.SessionTopic)
	for i := 0; i < cap(ch); i++ {
		bus.Publish(service.SessionTopic, service.Event{Type: service.EventLog, Seq: int64(i + 1)})
	}
	p := NewPublisher(blobs, bus, time.Minute)

	got := make(chan service.Event, 1)
	go func() {
		for e := range ch {
			if e.Type == service.EventDownload {
				got <- e
				return
			}
		}
	}()

	blob, err := blobs.Create([]byte("ID3"), domain.AudioMIME)
	require.NoError(t, err)
	require.NoError(t, p.Trigger(context.Background(), blob, "compressed.mp3"))

	select {
	case e := <-got:
		assert.Equal(t, "compressed.mp3", e.Filename)
	case <-time.After(time.Second):
		t.Fatal("download event never arrived")
	}
	assert.Equal(t, 1, p.Pending())
}

func TestURL_EscapesRef(t *testing.T) {
	assert.Equal(t, "/downloads/blob:abc", URL("blob:abc"))
}
