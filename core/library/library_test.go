package library

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"songbox/core/audio"
	"songbox/db/dbtest"
	"songbox/model"
	"songbox/repository"
	"songbox/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp3Bytes returns n silent 128kbps/44.1kHz MPEG frames.
func mp3Bytes(n int) []byte {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xff, 0xfb, 0x90, 0x00
	return bytes.Repeat(frame, n)
}

type fixture struct {
	svc   *Service
	repo  repository.SongRepository
	store *storage.LocalStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	repo := repository.NewMySQLSongRepository(dbtest.NewSQLite(t))

	svc := NewService(repo, store, nil, opts)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &fixture{svc: svc, repo: repo, store: store}
}

func upload(name string, body []byte) UploadInput {
	return UploadInput{
		OriginalName: name,
		ContentType:  "audio/mpeg",
		Size:         int64(len(body)),
		Body:         bytes.NewReader(body),
	}
}

func TestUploadDefaults(t *testing.T) {
	f := newFixture(t, Options{})
	body := mp3Bytes(200)

	song, err := f.svc.Upload(context.Background(), upload("My Track.mp3", body))
	require.NoError(t, err)

	assert.Equal(t, "1700000000000-My Track.mp3", song.Filename)
	assert.Equal(t, "My Track.mp3", song.OriginalName)
	assert.Equal(t, "My Track", song.Title)
	assert.Equal(t, model.DefaultArtist, song.Artist)
	assert.Equal(t, "", song.Album)
	assert.Equal(t, int64(len(body)), song.Size)
	require.NotNil(t, song.Duration)
	assert.Equal(t, 5, *song.Duration)

	stored, err := f.repo.GetSongByID(context.Background(), song.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, song.Filename, stored.Filename)

	ok, err := f.store.Exists(context.Background(), song.Filename)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUploadPrefersFormThenTags(t *testing.T) {
	f := newFixture(t, Options{})

	src := filepath.Join(t.TempDir(), "src.mp3")
	require.NoError(t, os.WriteFile(src, mp3Bytes(10), 0o600))
	require.NoError(t, audio.WriteTags(src, "Tag Title", "Tag Artist", "Tag Album"))
	body, err := os.ReadFile(src)
	require.NoError(t, err)

	in := upload("src.mp3", body)
	in.Artist = "  Form Artist "
	song, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Tag Title", song.Title)
	assert.Equal(t, "Form Artist", song.Artist)
	assert.Equal(t, "Tag Album", song.Album)
}

func TestUploadClipsLongFields(t *testing.T) {
	f := newFixture(t, Options{})

	src := filepath.Join(t.TempDir(), "src.mp3")
	require.NoError(t, os.WriteFile(src, mp3Bytes(10), 0o600))
	require.NoError(t, audio.WriteTags(src, strings.Repeat("t", 300), "Band", ""))
	body, err := os.ReadFile(src)
	require.NoError(t, err)

	in := upload(strings.Repeat("n", 300)+".mp3", body)
	in.Album = strings.Repeat("é", 300)
	song, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("t", model.MaxTextLen), song.Title)
	assert.Equal(t, strings.Repeat("é", model.MaxTextLen), song.Album)
	assert.Len(t, []rune(song.OriginalName), model.MaxTextLen)
	assert.LessOrEqual(t, len(song.Filename), model.MaxTextLen)
	assert.Equal(t, "Band", song.Artist)
}

func TestUploadSameNameTwice(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	a, err := f.svc.Upload(ctx, upload("a.mp3", mp3Bytes(1)))
	require.NoError(t, err)
	b, err := f.svc.Upload(ctx, upload("a.mp3", mp3Bytes(1)))
	require.NoError(t, err)

	assert.NotEqual(t, a.Filename, b.Filename)
	assert.Equal(t, "1700000000001-a.mp3", b.Filename)
}

func TestUploadRejectsNonAudio(t *testing.T) {
	f := newFixture(t, Options{})

	in := upload("notes.txt", []byte("hello"))
	in.ContentType = "text/plain"
	_, err := f.svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrNotAudio)

	objects, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestUploadNoBody(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Upload(context.Background(), UploadInput{OriginalName: "a.mp3"})
	assert.ErrorIs(t, err, ErrNoFile)
}

type failingRepo struct {
	repository.SongRepository
}

func (failingRepo) CreateSong(context.Context, *model.Song) (int64, error) {
	return 0, errors.New("db down")
}

func TestUploadRemovesFileWhenInsertFails(t *testing.T) {
	f := newFixture(t, Options{})
	svc := NewService(failingRepo{f.repo}, f.store, nil, Options{})

	_, err := svc.Upload(context.Background(), upload("a.mp3", mp3Bytes(1)))
	require.Error(t, err)

	objects, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objects)
}

// remoteStore hides the local path so the service has to download objects.
type remoteStore struct {
	storage.Store
}

func TestUploadExtractsFromRemoteStore(t *testing.T) {
	f := newFixture(t, Options{})
	svc := NewService(f.repo, remoteStore{f.store}, nil, Options{TempDir: t.TempDir()})

	song, err := svc.Upload(context.Background(), upload("remote.mp3", mp3Bytes(200)))
	require.NoError(t, err)
	require.NotNil(t, song.Duration)
	assert.Equal(t, 5, *song.Duration)
}

func TestListReturnsTotal(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		_, err := f.svc.Upload(ctx, upload(name, mp3Bytes(1)))
		require.NoError(t, err)
	}

	songs, total, err := f.svc.List(ctx, model.SongFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, songs, 2)
	assert.Equal(t, int64(3), total)

	songs, total, err = f.svc.List(ctx, model.SongFilter{})
	require.NoError(t, err)
	assert.Len(t, songs, 3)
	assert.Equal(t, int64(3), total)

	songs, total, err = f.svc.List(ctx, model.SongFilter{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, songs, 1)
	assert.Equal(t, int64(3), total)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, Options{WriteTags: true})
	ctx := context.Background()

	song, err := f.svc.Upload(ctx, upload("a.mp3", mp3Bytes(10)))
	require.NoError(t, err)

	title, artist := "  New Title ", ""
	updated, err := f.svc.Update(ctx, song.ID, model.SongUpdate{Title: &title, Artist: &artist})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, model.DefaultArtist, updated.Artist)

	path, err := f.store.Path(song.Filename)
	require.NoError(t, err)
	md, err := audio.ExtractMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "New Title", md.Title)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	blank := "   "
	_, err := f.svc.Update(ctx, 1, model.SongUpdate{Title: &blank})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	title := "x"
	got, err := f.svc.Update(ctx, 404, model.SongUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	song, err := f.svc.Upload(ctx, upload("a.mp3", mp3Bytes(1)))
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, song.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	ok, err := f.store.Exists(ctx, song.Filename)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err = f.svc.Delete(ctx, song.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	song, err := f.svc.Upload(ctx, upload("a.mp3", mp3Bytes(1)))
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, song.Filename))

	deleted, err := f.svc.Delete(ctx, song.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestSync(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, upload("known.mp3", mp3Bytes(1)))
	require.NoError(t, err)

	_, err = f.store.Save(ctx, "dropped.mp3", bytes.NewReader(mp3Bytes(200)), -1)
	require.NoError(t, err)
	_, err = f.store.Save(ctx, "cover.jpg", strings.NewReader("jpeg"), -1)
	require.NoError(t, err)

	report, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, report.Added, 1)
	assert.Equal(t, "dropped.mp3", report.Added[0].Filename)
	assert.Equal(t, "dropped", report.Added[0].Title)
	assert.Equal(t, model.DefaultArtist, report.Added[0].Artist)
	assert.Equal(t, []string{"cover.jpg"}, report.Skipped)

	again, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Added)
}

func TestWatchRegistersDroppedFiles(t *testing.T) {
	f := newFixture(t, Options{SettleDelay: 100 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to subscribe
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "manual.mp3"), mp3Bytes(5), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "readme.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		song, err := f.repo.GetSongByFilename(context.Background(), "manual.mp3")
		return err == nil && song != nil
	}, 5*time.Second, 50*time.Millisecond)

	song, err := f.repo.GetSongByFilename(context.Background(), "readme.txt")
	require.NoError(t, err)
	assert.Nil(t, song)
}

func TestWatchNeedsLocalStore(t *testing.T) {
	f := newFixture(t, Options{})
	svc := NewService(f.repo, remoteStore{f.store}, nil, Options{})

	assert.ErrorIs(t, svc.Watch(context.Background()), ErrNotWatchable)
}
