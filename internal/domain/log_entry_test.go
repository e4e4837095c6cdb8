package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogEntry(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	entry := NewLogEntry("7", "Backpack", "http://localhost:8080/products/7", now)

	assert.Equal(t, "7", entry.ProductID)
	assert.Equal(t, int64(1), entry.Count)
	assert.Equal(t, now.UnixMilli(), entry.Timestamp)
}

func TestRecordVisit_IncrementsAndKeepsMetadata(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	entry := NewLogEntry("7", "Backpack", "http://localhost:8080/products/7", created)

	entry.RecordVisit(created.Add(time.Second))

	assert.Equal(t, int64(2), entry.Count)
	assert.Equal(t, created.Add(time.Second).UnixMilli(), entry.Timestamp)
	assert.Equal(t, "Backpack", entry.ProductTitle)
	assert.Equal(t, "http://localhost:8080/products/7", entry.ProductURL)
}

func TestRecordVisit_SameMillisecondStillAdvances(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	entry := NewLogEntry("7", "Backpack", "#", now)

	entry.RecordVisit(now)
	entry.RecordVisit(now.Add(-time.Hour))

	assert.Equal(t, int64(3), entry.Count)
	assert.Equal(t, now.UnixMilli()+2, entry.Timestamp)
}

func TestNormalizeProductID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain id", input: "12", want: "12"},
		{name: "trims whitespace", input: "  12 ", want: "12"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeProductID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalCount(t *testing.T) {
	entries := []LogEntry{{Count: 5}, {Count: 1}, {Count: 3}}

	assert.Equal(t, int64(9), TotalCount(entries))
	assert.Equal(t, int64(0), TotalCount(nil))
}
