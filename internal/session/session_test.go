package session

import (
	"context"
	"testing"
	"time"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/logger"
	"parcel-api/internal/overlay"
	"parcel-api/internal/pointer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"CCA":"001","PDA":"A1"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}}]}`

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	ds := cadastre.NewDataset(cadastre.BytesSource(squareGeoJSON), cadastre.WithLogger(logger.Discard()))
	_, err := ds.EnsureLoaded(context.Background())
	require.NoError(t, err)
	return NewRegistry(ds, time.Millisecond, logger.Discard())
}

func TestSession_HoverAndClick(t *testing.T) {
	reg := newRegistry(t)
	picked := make(chan pointer.SelectedParcel, 1)
	s := reg.Open(func(p pointer.SelectedParcel) { picked <- p })
	t.Cleanup(s.Close)

	_, ok := reg.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, 1, reg.Len())

	s.Move(pointer.LatLng{Lat: 2, Lng: 3})
	require.Eventually(t, func() bool { return s.State.Hovered() != nil }, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, "CCA 001 · PDA A1", s.State.Hovered().Label)

	s.Click(pointer.LatLng{Lat: 2, Lng: 3})
	select {
	case p := <-picked:
		assert.Equal(t, "001", *p.CCA)
		assert.Equal(t, 2.0, p.Lat)
		assert.Equal(t, 3.0, p.Lon)
	case <-time.After(2 * time.Second):
		t.Fatal("parcel not picked")
	}
	require.Eventually(t, func() bool { return s.State.Selected() != nil }, 2*time.Second, 2*time.Millisecond)
}

func TestSession_LeaveClearsHover(t *testing.T) {
	reg := newRegistry(t)
	s := reg.Open(nil)
	t.Cleanup(s.Close)

	s.Move(pointer.LatLng{Lat: 2, Lng: 3})
	require.Eventually(t, func() bool { return s.State.Hovered() != nil }, 2*time.Second, 2*time.Millisecond)

	cleared := make(chan struct{}, 1)
	s.State.Subscribe(func(c overlay.Change) {
		if c.Slot == overlay.SlotHovered && c.Overlay == nil {
			cleared <- struct{}{}
		}
	})
	s.Leave()
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("hover not cleared")
	}
}

func TestRegistry_CloseDetaches(t *testing.T) {
	reg := newRegistry(t)
	s := reg.Open(nil)

	s.Click(pointer.LatLng{Lat: 1, Lng: 1})
	s.Move(pointer.LatLng{Lat: 1, Lng: 1})
	require.Eventually(t, func() bool {
		return s.State.Hovered() != nil && s.State.Selected() != nil
	}, 2*time.Second, 2*time.Millisecond)

	reg.Close(s.ID)
	assert.Zero(t, reg.Len())
	assert.Nil(t, s.State.Hovered())
	assert.NotNil(t, s.State.Selected(), "selection outlives the coordinator")

	// 关闭后的事件被丢弃，不阻塞
	s.Move(pointer.LatLng{Lat: 1, Lng: 1})
	s.Close()
	reg.Close("unknown")
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := newRegistry(t)
	reg.Open(nil)
	reg.Open(nil)
	require.Equal(t, 2, reg.Len())
	reg.CloseAll()
	assert.Zero(t, reg.Len())
}

func TestSession_CloseAfterClickFlood(t *testing.T) {
	reg := newRegistry(t)
	s := reg.Open(nil)

	flooded := make(chan struct{})
	go func() {
		defer close(flooded)
		for i := 0; i < 5000; i++ {
			s.Click(pointer.LatLng{Lat: 5, Lng: 5})
		}
	}()
	require.Eventually(t, func() bool { return s.State.Selected() != nil }, 5*time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		reg.Close(s.ID)
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after a click flood")
	}
	select {
	case <-flooded:
	case <-time.After(5 * time.Second):
		t.Fatal("click producer still blocked after Close")
	}
	assert.Zero(t, reg.Len())
}
