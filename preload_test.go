package coral

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralorm/coral/schema"
)

func postDefinition() *schema.Definition {
	return schema.Define("Post").
		Field("id", schema.Int, schema.PrimaryKey()).
		Field("title", schema.String, schema.MappedColumn()).
		Field("authorId", schema.Int, schema.Column("author_id")).
		BelongsTo("author", "User", schema.ForeignKey("author_id"))
}

func TestPreloadBelongsToSharesInstances(t *testing.T) {
	repo, mock := mockRepository(t, "Post", postDefinition(), userDefinition())

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(1, "first", 7).
			AddRow(2, "second", 7).
			AddRow(3, "orphan", nil))
	mock.ExpectQuery("SELECT * FROM users WHERE id IN (?)").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(7, "bob", "b@example.com"))

	posts, err := repo.With("author").FindAll()
	require.NoError(t, err)
	require.Len(t, posts, 3)

	author := posts[0].Related("author")
	require.NotNil(t, author)
	assert.Equal(t, "bob", author.Get("name"))
	// both posts point at the same materialized author
	assert.Same(t, author, posts[1].Related("author"))

	assert.Equal(t, RelationAbsent, posts[2].RelationState("author"))
	assert.Nil(t, posts[2].Related("author"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadHasManyIsTwoQueries(t *testing.T) {
	repo, mock := mockRepository(t, "User", userDefinition().
		HasMany("posts", "Post", schema.ForeignKey("author_id")),
		postDefinition())

	// the expectation set is exhaustive: a per-parent query would fail the mock
	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(1, "alice", nil).
			AddRow(2, "bob", nil).
			AddRow(3, "carol", nil))
	mock.ExpectQuery("SELECT * FROM posts WHERE author_id IN (?, ?, ?)").
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(10, "a", 1).
			AddRow(11, "b", 1).
			AddRow(12, "c", 3))

	users, err := repo.With("posts").FindAll()
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.Len(t, users[0].RelatedMany("posts"), 2)
	assert.Len(t, users[2].RelatedMany("posts"), 1)

	// matched nothing, still loaded: empty list, not unloaded
	assert.Equal(t, RelationLoadedMany, users[1].RelationState("posts"))
	assert.Empty(t, users[1].RelatedMany("posts"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadHasOneKeepsFirstMatch(t *testing.T) {
	repo, mock := mockRepository(t, "User", userDefinition().
		HasOne("profile", "Profile", schema.ForeignKey("user_id")),
		schema.Define("Profile").
			Field("id", schema.Int, schema.PrimaryKey()).
			Field("userId", schema.Int, schema.Column("user_id")).
			Field("bio", schema.String, schema.MappedColumn()))

	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "alice", nil))
	mock.ExpectQuery("SELECT * FROM profiles WHERE user_id IN (?)").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "bio"}).
			AddRow(101, 1, "kept").
			AddRow(102, 1, "ignored"))

	users, err := repo.With("profile").FindAll()
	require.NoError(t, err)
	require.Len(t, users, 1)

	profile := users[0].Related("profile")
	require.NotNil(t, profile)
	assert.Equal(t, int64(101), profile.Get("id"))
	assert.Equal(t, "kept", profile.Get("bio"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadManyToMany(t *testing.T) {
	repo, mock := mockRepository(t, "Post", schema.Define("Post").
		Field("id", schema.Int, schema.PrimaryKey()).
		Field("title", schema.String, schema.MappedColumn()).
		ManyToMany("tags", "Tag", "post_tags", "post_id", "tag_id"),
		schema.Define("Tag").
			Field("id", schema.Int, schema.PrimaryKey()).
			Field("name", schema.String, schema.MappedColumn()))

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(1, "first").
			AddRow(2, "second"))
	mock.ExpectQuery("SELECT post_id, tag_id FROM post_tags WHERE post_id IN (?, ?)").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "tag_id"}).
			AddRow(1, 101).
			AddRow(1, 102).
			AddRow(2, 101))
	mock.ExpectQuery("SELECT * FROM tags WHERE id IN (?, ?)").
		WithArgs(101, 102).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(101, "alpha").
			AddRow(102, "beta"))

	posts, err := repo.With("tags").FindAll()
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0].RelatedMany("tags")
	require.Len(t, first, 2)
	assert.Equal(t, "alpha", first[0].Get("name"))
	assert.Equal(t, "beta", first[1].Get("name"))

	second := posts[1].RelatedMany("tags")
	require.Len(t, second, 1)
	// the shared tag materializes once for the whole batch
	assert.Same(t, first[0], second[0])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadUnknownRelation(t *testing.T) {
	repo, mock := mockRepository(t, "User", userDefinition())

	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "alice", nil))

	_, err := repo.With("bogus").FindAll()
	assert.ErrorIs(t, err, ErrUnsupportedRelation)

	// the preload list does not survive the failed fetch
	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "alice", nil))

	users, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, RelationUnloaded, users[0].RelationState("bogus"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadDuplicateRelationLoadsOnce(t *testing.T) {
	repo, mock := mockRepository(t, "Post", postDefinition(), userDefinition())

	mock.ExpectQuery("SELECT * FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).AddRow(1, "first", 7))
	mock.ExpectQuery("SELECT * FROM users WHERE id IN (?)").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(7, "bob", nil))

	posts, err := repo.With("author", "author").FindAll()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].Related("author"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
