package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQnA(t *testing.T) {
	valid := []QnACategory{
		{Category: "General", Items: []QnAItem{
			{Question: "Purpose of Visit", Answer: "checkup"},
			{Question: "Do you have any known allergies?", Answer: ""},
		}},
	}

	t.Run("well-formed passes, empty answers allowed", func(t *testing.T) {
		require.NoError(t, ValidateQnA(valid))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		assert.Error(t, ValidateQnA(nil))
	})

	t.Run("rejects empty category name", func(t *testing.T) {
		bad := []QnACategory{{Category: "  ", Items: []QnAItem{{Question: "q"}}}}
		assert.Error(t, ValidateQnA(bad))
	})

	t.Run("rejects empty question text", func(t *testing.T) {
		bad := []QnACategory{{Category: "General", Items: []QnAItem{{Question: ""}}}}
		assert.Error(t, ValidateQnA(bad))
	})

	t.Run("rejects duplicate question across categories", func(t *testing.T) {
		bad := []QnACategory{
			{Category: "A", Items: []QnAItem{{Question: "same"}}},
			{Category: "B", Items: []QnAItem{{Question: "same"}}},
		}
		assert.Error(t, ValidateQnA(bad))
	})
}

func TestFlattenAndMergeQnA(t *testing.T) {
	initial := []QnACategory{
		{Category: "General", Items: []QnAItem{
			{Question: "q1", Answer: "a1"},
			{Question: "q2", Answer: ""},
			{Question: "q3", Answer: "a3"},
		}},
	}

	flat := FlattenQnA(initial)
	require.Len(t, flat, 3)
	assert.Equal(t, "a1", flat["q1"])
	assert.Equal(t, "", flat["q2"])

	t.Run("merge never drops a key given distinct texts", func(t *testing.T) {
		followUp := map[string]string{"f1": "x", "f2": "y"}
		merged := MergeQnA(flat, followUp)
		assert.Len(t, merged, len(flat)+len(followUp))
	})

	t.Run("earlier entries win on collision", func(t *testing.T) {
		merged := MergeQnA(flat, map[string]string{"q1": "overwrite"})
		assert.Equal(t, "a1", merged["q1"])
		assert.Len(t, merged, 3)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		_ = MergeQnA(flat, map[string]string{"f9": "z"})
		assert.Len(t, flat, 3)
	})
}
