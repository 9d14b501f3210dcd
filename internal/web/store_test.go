package web

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/freedom-calculator/internal/model"
)

func TestStoreAddGet(t *testing.T) {
	store := NewStore(10)

	run := store.Add("broker.xlsx", &model.Report{Currency: "USD"})
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "broker.xlsx", run.Broker)

	got, ok := store.Get(run.ID)
	require.True(t, ok)
	assert.Same(t, run, got)

	_, ok = store.Get("nope")
	assert.False(t, ok)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := NewStore(10)

	first := store.Add("first.xlsx", &model.Report{})
	first.CreatedAt = time.Now().Add(-time.Hour)
	store.Add("second.xlsx", &model.Report{})

	runs := store.List()
	require.Len(t, runs, 2)
	assert.Equal(t, "second.xlsx", runs[0].Broker)
	assert.Equal(t, "first.xlsx", runs[1].Broker)
}

func TestStoreEvictsOldest(t *testing.T) {
	store := NewStore(3)

	var oldest *Run
	for i := 0; i < 3; i++ {
		run := store.Add(fmt.Sprintf("report-%d.xlsx", i), &model.Report{})
		run.CreatedAt = time.Now().Add(time.Duration(i-10) * time.Minute)
		if i == 0 {
			oldest = run
		}
	}

	store.Add("newest.xlsx", &model.Report{})
	assert.Equal(t, 3, store.Len())

	_, ok := store.Get(oldest.ID)
	assert.False(t, ok, "the oldest run is evicted at capacity")
}
