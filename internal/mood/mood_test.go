package mood

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllIsOrderedByRank(t *testing.T) {
	cats := All()
	require.Len(t, cats, 7)
	for i, c := range cats {
		assert.Equal(t, i+1, c.Rank, "category %s", c.Key)
	}

	// callers get a copy
	cats[0] = VeryHappy
	assert.Equal(t, VerySad, All()[0])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Category
		wantErr  bool
	}{
		{name: "key", input: "happy", expected: Happy},
		{name: "dashed key", input: "Slightly-Sad", expected: SlightlySad},
		{name: "rank", input: "7", expected: VeryHappy},
		{name: "rank out of range", input: "8", wantErr: true},
		{name: "unknown", input: "ecstatic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBucket(t *testing.T) {
	expected := map[Category]Bucket{
		VerySad:       BucketNegative,
		Sad:           BucketNegative,
		SlightlySad:   BucketSlightlyNegative,
		Neutral:       BucketNeutral,
		SlightlyHappy: BucketPositive,
		Happy:         BucketPositive,
		VeryHappy:     BucketVeryPositive,
	}
	for c, b := range expected {
		assert.Equal(t, b, c.Bucket(), c.Key)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Neutral.Valid())
	assert.False(t, Category{}.Valid())
	assert.False(t, Category{Key: "happy", Rank: 2}.Valid())
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Mood Category `json:"mood"`
	}{Mood: SlightlyHappy})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mood":"slightly_happy"}`, string(data))

	var decoded struct {
		Mood Category `json:"mood"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"mood":2}`), &decoded))
	assert.Equal(t, Sad, decoded.Mood)
	require.NoError(t, json.Unmarshal([]byte(`{"mood":"very_happy"}`), &decoded))
	assert.Equal(t, VeryHappy, decoded.Mood)
	assert.Error(t, json.Unmarshal([]byte(`{"mood":"meh"}`), &decoded))
}
