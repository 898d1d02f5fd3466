package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraftStatus(t *testing.T) {
	for _, s := range []string{"new", "processed", "deleted", "skipped"} {
		got, err := ParseDraftStatus(s)
		require.NoError(t, err)
		assert.Equal(t, DraftStatus(s), got)
	}

	_, err := ParseDraftStatus("published")
	assert.Error(t, err)
}

func TestDraftStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from DraftStatus
		to   DraftStatus
		want bool
	}{
		{DraftStatusNew, DraftStatusProcessed, true},
		{DraftStatusNew, DraftStatusDeleted, true},
		{DraftStatusNew, DraftStatusSkipped, true},
		{DraftStatusNew, DraftStatusNew, false},
		{DraftStatusSkipped, DraftStatusNew, true},
		{DraftStatusSkipped, DraftStatusDeleted, true},
		{DraftStatusSkipped, DraftStatusProcessed, false},
		{DraftStatusProcessed, DraftStatusNew, false},
		{DraftStatusDeleted, DraftStatusNew, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestDraft_Validate(t *testing.T) {
	valid := func() *Draft {
		return &Draft{
			SourceKind: SourceKindFeed,
			SourceURL:  "https://example.com/a",
			Text:       "TON price rises",
			Keywords:   []string{"TON"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(d *Draft)
		field  string
	}{
		{"bad kind", func(d *Draft) { d.SourceKind = "x" }, "source_kind"},
		{"missing url", func(d *Draft) { d.SourceURL = "" }, "source_url"},
		{"missing text", func(d *Draft) { d.Text = "" }, "text"},
		{"no keywords", func(d *Draft) { d.Keywords = nil }, "keywords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
