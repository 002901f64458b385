package model

// QueueItem is one entry of a playback queue.
type QueueItem struct {
	SongID int64  `json:"songId"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"` // Where the client fetches the audio
}

// QueueState is the client-facing snapshot of a playback queue.
type QueueState struct {
	Items   []QueueItem `json:"items"`
	Cursor  int         `json:"cursor"` // -1 when nothing is selected
	Current *QueueItem  `json:"current"`
}
