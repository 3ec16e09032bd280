package posts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ID
	}{
		{name: "number", input: `42`, want: "42"},
		{name: "string", input: `"42"`, want: "42"},
		{name: "padded string", input: `" abc "`, want: "abc"},
		{name: "null", input: `null`, want: ""},
		{name: "float keeps text", input: `4.5`, want: "4.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestID_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestPost_Normalize(t *testing.T) {
	p := Post{ID: "1", LikesCount: -3, CommentsCount: -1}
	p.Normalize()

	assert.Equal(t, 0, p.LikesCount)
	assert.Equal(t, 0, p.CommentsCount)
}

func TestUser_Normalize(t *testing.T) {
	u := User{ID: "7", FollowersCount: -10}
	u.Normalize()

	assert.Equal(t, 0, u.FollowersCount)
}

func TestSearchType(t *testing.T) {
	assert.True(t, SearchAll.Valid())
	assert.True(t, SearchAll.IncludesPosts())
	assert.True(t, SearchAll.IncludesUsers())
	assert.False(t, SearchUsers.IncludesPosts())
	assert.False(t, SearchPosts.IncludesUsers())
	assert.False(t, SearchType("groups").Valid())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("query", "must not be empty")

	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "query")
	assert.False(t, IsValidationError(ErrNotFound))
}
