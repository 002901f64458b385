package jamendo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Genres are the tags offered for browsing.
var Genres = []string{
	"pop", "rock", "jazz", "classical", "electronic",
	"hiphop", "metal", "folk", "blues", "reggae",
	"ambient", "country", "funk", "soul", "punk",
	"indie", "world", "soundtrack", "lounge", "relaxation",
}

// Track is a Jamendo track reshaped for clients.
type Track struct {
	ID          string          `json:"id"`
	JamendoID   string          `json:"jamendo_id"`
	Title       string          `json:"title"`
	Artist      string          `json:"artist"`
	ArtistID    string          `json:"artist_id"`
	Album       string          `json:"album"`
	AlbumID     string          `json:"album_id"`
	Duration    int             `json:"duration"`
	ReleaseDate string          `json:"releasedate"`
	Image       string          `json:"image"`
	AudioURL    string          `json:"audio_url"`
	DownloadURL string          `json:"download_url"`
	ShareURL    string          `json:"share_url"`
	License     string          `json:"license"`
	MusicInfo   json.RawMessage `json:"musicinfo"`
	Tags        json.RawMessage `json:"tags"`
}

// flexString accepts JSON strings and numbers; Jamendo is not consistent about ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts JSON numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

// rawTrack is a track as the API returns it.
type rawTrack struct {
	ID            flexString      `json:"id"`
	Name          string          `json:"name"`
	Duration      flexInt         `json:"duration"`
	ArtistID      flexString      `json:"artist_id"`
	ArtistName    string          `json:"artist_name"`
	AlbumName     string          `json:"album_name"`
	AlbumID       flexString      `json:"album_id"`
	ReleaseDate   string          `json:"releasedate"`
	AlbumImage    string          `json:"album_image"`
	Audio         string          `json:"audio"`
	AudioDownload string          `json:"audiodownload"`
	ShareURL      string          `json:"shareurl"`
	LicenseCCURL  string          `json:"license_ccurl"`
	MusicInfo     json.RawMessage `json:"musicinfo"`
}

var emptyObject = json.RawMessage("{}")

func formatTrack(t rawTrack) Track {
	info := t.MusicInfo
	if len(info) == 0 || string(info) == "null" {
		info = emptyObject
	}
	tags := emptyObject
	var withTags struct {
		Tags json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(info, &withTags); err == nil && len(withTags.Tags) > 0 && string(withTags.Tags) != "null" {
		tags = withTags.Tags
	}

	return Track{
		ID:          string(t.ID),
		JamendoID:   string(t.ID),
		Title:       t.Name,
		Artist:      t.ArtistName,
		ArtistID:    string(t.ArtistID),
		Album:       t.AlbumName,
		AlbumID:     string(t.AlbumID),
		Duration:    int(t.Duration),
		ReleaseDate: t.ReleaseDate,
		Image:       t.AlbumImage,
		AudioURL:    t.Audio,
		DownloadURL: t.AudioDownload,
		ShareURL:    t.ShareURL,
		License:     t.LicenseCCURL,
		MusicInfo:   info,
		Tags:        tags,
	}
}

func (c *Client) tracks(ctx context.Context, params url.Values) ([]Track, error) {
	if params.Get("include") == "" {
		params.Set("include", "musicinfo")
	}
	params.Set("audioformat", "mp32")

	results, err := c.get(ctx, "tracks", params)
	if err != nil {
		return nil, err
	}
	var raw []rawTrack
	if err := json.Unmarshal(results, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode tracks: %v", ErrUpstream, err)
	}

	tracks := make([]Track, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, formatTrack(t))
	}
	return tracks, nil
}

func limitParams(limit int) url.Values {
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

// SearchTracks finds tracks matching a free text query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	p := limitParams(limit)
	p.Set("search", query)
	return c.tracks(ctx, p)
}

// TracksByGenre lists tracks tagged with genre.
func (c *Client) TracksByGenre(ctx context.Context, genre string, limit int) ([]Track, error) {
	p := limitParams(limit)
	p.Set("tags", genre)
	return c.tracks(ctx, p)
}

// FeaturedTracks lists featured tracks, most popular first.
func (c *Client) FeaturedTracks(ctx context.Context, limit int) ([]Track, error) {
	p := limitParams(limit)
	p.Set("featured", "1")
	p.Set("order", "popularity_total")
	return c.tracks(ctx, p)
}

// Track fetches one track with lyrics. It returns nil when the id is unknown.
func (c *Client) Track(ctx context.Context, id string) (*Track, error) {
	tracks, err := c.tracks(ctx, url.Values{"id": {id}, "include": {"musicinfo lyrics"}})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

// ArtistTracks lists tracks of an artist.
func (c *Client) ArtistTracks(ctx context.Context, artistID string, limit int) ([]Track, error) {
	p := limitParams(limit)
	p.Set("artist_id", artistID)
	return c.tracks(ctx, p)
}

// RadioTracks lists tracks of a radio.
func (c *Client) RadioTracks(ctx context.Context, radioID string, limit int) ([]Track, error) {
	p := limitParams(limit)
	p.Set("radio_id", radioID)
	return c.tracks(ctx, p)
}

// SearchArtists returns artist records as the API sends them.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]json.RawMessage, error) {
	p := limitParams(limit)
	p.Set("search", query)
	return c.list(ctx, "artists", p)
}

// Radios returns radio records as the API sends them.
func (c *Client) Radios(ctx context.Context, limit int) ([]json.RawMessage, error) {
	return c.list(ctx, "radios", limitParams(limit))
}

func (c *Client) list(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	results, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	items := make([]json.RawMessage, 0)
	if err := json.Unmarshal(results, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrUpstream, endpoint, err)
	}
	return items, nil
}
