package repository

import (
	"context"
	"testing"

	"songbox/db/dbtest"
	"songbox/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newSong(filename, title, artist, album string) *model.Song {
	return &model.Song{
		Filename:     filename,
		OriginalName: filename,
		Title:        title,
		Artist:       artist,
		Album:        album,
		Size:         1024,
	}
}

func seed(t *testing.T, repo SongRepository, songs ...*model.Song) {
	t.Helper()
	for _, s := range songs {
		_, err := repo.CreateSong(context.Background(), s)
		require.NoError(t, err)
	}
}

func TestCreateAndGetSong(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	ctx := context.Background()

	dur := 215
	song := newSong("1700000000000-intro.mp3", "Intro", "The Band", "First")
	song.Duration = &dur

	id, err := repo.CreateSong(ctx, song)
	require.NoError(t, err)
	assert.Equal(t, id, song.ID)
	assert.False(t, song.UploadDate.IsZero())

	got, err := repo.GetSongByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Intro", got.Title)
	assert.Equal(t, "The Band", got.Artist)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 215, *got.Duration)
	assert.Equal(t, song.UploadDate.Unix(), got.UploadDate.Unix())

	byName, err := repo.GetSongByFilename(ctx, "1700000000000-intro.mp3")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)
}

func TestGetSongMissingReturnsNil(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))

	got, err := repo.GetSongByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetSongByFilename(context.Background(), "nope.mp3")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateSongDuplicateFilename(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	seed(t, repo, newSong("a.mp3", "A", "X", ""))

	_, err := repo.CreateSong(context.Background(), newSong("a.mp3", "Again", "X", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestNullDurationRoundTrip(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	song := newSong("b.wav", "B", "Y", "")
	seed(t, repo, song)

	got, err := repo.GetSongByID(context.Background(), song.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Duration)
}

func TestListSongsSearch(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	seed(t, repo,
		newSong("1.mp3", "Blue Monday", "New Order", "Power, Corruption & Lies"),
		newSong("2.mp3", "Ceremony", "New Order", "Substance"),
		newSong("3.mp3", "Atmosphere", "Joy Division", "Substance"),
		newSong("4.mp3", "100% Pure", "Various", ""),
	)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter model.SongFilter
		want   []string
	}{
		{"all newest first", model.SongFilter{}, []string{"100% Pure", "Atmosphere", "Ceremony", "Blue Monday"}},
		{"title substring case-insensitive", model.SongFilter{Query: "monday"}, []string{"Blue Monday"}},
		{"matches artist", model.SongFilter{Query: "order"}, []string{"Ceremony", "Blue Monday"}},
		{"matches album", model.SongFilter{Query: "substance"}, []string{"Atmosphere", "Ceremony"}},
		{"percent is literal", model.SongFilter{Query: "0%"}, []string{"100% Pure"}},
		{"underscore is literal", model.SongFilter{Query: "_"}, nil},
		{"exact artist", model.SongFilter{Artist: "Joy Division"}, []string{"Atmosphere"}},
		{"query and album", model.SongFilter{Query: "new", Album: "Substance"}, []string{"Ceremony"}},
		{"paging", model.SongFilter{Limit: 2, Offset: 1}, []string{"Atmosphere", "Ceremony"}},
		{"offset without limit", model.SongFilter{Offset: 2}, []string{"Ceremony", "Blue Monday"}},
		{"offset past the end", model.SongFilter{Offset: 9}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, err := repo.ListSongs(ctx, tt.filter)
			require.NoError(t, err)

			var titles []string
			for _, s := range songs {
				titles = append(titles, s.Title)
			}
			assert.Equal(t, tt.want, titles)

			count, err := repo.CountSongs(ctx, model.SongFilter{Query: tt.filter.Query, Artist: tt.filter.Artist, Album: tt.filter.Album})
			require.NoError(t, err)
			if tt.filter.Limit == 0 && tt.filter.Offset == 0 {
				assert.Equal(t, int64(len(tt.want)), count)
			}
		})
	}
}

func TestUpdateSongPartial(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	song := newSong("c.mp3", "Old Title", "Old Artist", "Old Album")
	seed(t, repo, song)
	ctx := context.Background()

	got, err := repo.UpdateSong(ctx, song.ID, model.SongUpdate{Title: strPtr("New Title")})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "Old Artist", got.Artist)
	assert.Equal(t, "Old Album", got.Album)

	got, err = repo.UpdateSong(ctx, song.ID, model.SongUpdate{Artist: strPtr("A"), Album: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "A", got.Artist)
	assert.Equal(t, "", got.Album)
}

func TestUpdateSongMissing(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))

	got, err := repo.UpdateSong(context.Background(), 99, model.SongUpdate{Title: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteSong(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	song := newSong("d.mp3", "D", "Z", "")
	seed(t, repo, song)
	ctx := context.Background()

	deleted, err := repo.DeleteSong(ctx, song.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteSong(ctx, song.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.GetSongByID(ctx, song.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListFilenames(t *testing.T) {
	repo := NewMySQLSongRepository(dbtest.NewSQLite(t))
	seed(t, repo, newSong("x.mp3", "X", "", ""), newSong("y.mp3", "Y", "", ""))

	names, err := repo.ListFilenames(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "x.mp3")
	assert.Contains(t, names, "y.mp3")
}

func TestReorder(t *testing.T) {
	entries := []model.PlaylistSong{{SongID: 1}, {SongID: 2}, {SongID: 3}, {SongID: 4}}

	assert.Equal(t, []int64{3, 1, 2, 4}, reorder(entries, []int64{3, 1}))
	assert.Equal(t, []int64{4, 3, 2, 1}, reorder(entries, []int64{4, 3, 2, 1}))
	assert.Equal(t, []int64{2, 1, 3, 4}, reorder(entries, []int64{2, 99, 2}))
	assert.Equal(t, []int64{1, 2, 3, 4}, reorder(entries, nil))
}
