package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationUnmarshalReadFlag(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
		wantErr bool
	}{
		{name: "bool", payload: `{"id":"n1","isRead":true}`, want: true},
		{name: "snake case", payload: `{"id":"n1","is_read":true}`, want: true},
		{name: "read key", payload: `{"id":"n1","read":1}`, want: true},
		{name: "string false", payload: `{"id":"n1","isRead":"false"}`, want: false},
		{name: "string true", payload: `{"id":"n1","isRead":"TRUE"}`, want: true},
		{name: "zero", payload: `{"id":"n1","isRead":0}`, want: false},
		{name: "null", payload: `{"id":"n1","isRead":null}`, want: false},
		{name: "missing", payload: `{"id":"n1"}`, want: false},
		{name: "garbage", payload: `{"id":"n1","isRead":"maybe"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Notification
			err := json.Unmarshal([]byte(tt.payload), &n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "n1", n.ID)
			assert.Equal(t, tt.want, n.IsRead)
		})
	}
}

func TestNotificationUnmarshalFields(t *testing.T) {
	payload := `{"id":"n4","accountId":"acct-1","title":"New course","message":"Robotics 101 is live",
		"type":"COURSE","typeText":"Course","isRead":false,"createdDate":"2026-10-18T09:30:00Z"}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	assert.Equal(t, Notification{
		ID:          "n4",
		AccountID:   "acct-1",
		Title:       "New course",
		Message:     "Robotics 101 is live",
		Type:        "COURSE",
		TypeText:    "Course",
		CreatedDate: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}, n)
}

func TestNotificationMergeRead(t *testing.T) {
	read := Notification{ID: "n1", IsRead: true}
	unread := Notification{ID: "n1", Title: "updated"}

	merged := unread.MergeRead(read)
	assert.True(t, merged.IsRead)
	assert.Equal(t, "updated", merged.Title)

	assert.False(t, unread.MergeRead(Notification{ID: "n1"}).IsRead)
}

func TestPageArithmetic(t *testing.T) {
	tests := []struct {
		name      string
		number    int
		size      int
		total     int
		items     int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{name: "empty", number: 1, size: 20, total: 0, items: 0, wantPages: 0},
		{name: "single partial", number: 1, size: 20, total: 3, items: 3, wantPages: 1},
		{name: "first of many", number: 1, size: 10, total: 25, items: 10, wantPages: 3, wantNext: true},
		{name: "middle", number: 2, size: 10, total: 25, items: 10, wantPages: 3, wantNext: true, wantPrev: true},
		{name: "last", number: 3, size: 10, total: 25, items: 5, wantPages: 3, wantPrev: true},
		{name: "exact fit", number: 2, size: 5, total: 10, items: 5, wantPages: 2, wantPrev: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewPage(make([]int, tt.items), tt.number, tt.size, tt.total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPrev, page.HasPrevious)
			assert.NoError(t, page.Check(tt.number, tt.size))
		})
	}
}

func TestPageCheckRejects(t *testing.T) {
	oversized := NewPage(make([]int, 6), 1, 5, 6)
	assert.Error(t, oversized.Check(1, 5))

	inconsistent := Page[int]{Data: []int{1}, TotalPages: 3, HasNext: false}
	assert.Error(t, inconsistent.Check(1, 10))
}

func TestPageClone(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 1, 10, 2)
	c := p.Clone()
	c.Data[0] = "z"
	assert.Equal(t, "a", p.Data[0])
}
