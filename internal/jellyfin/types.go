package jellyfin

// Wire types for the subset of the server API this connector consumes.
// Field names follow the server's JSON exactly; optional fields stay
// pointers or zero values so missing data is distinguishable.

// ItemsPage is the envelope most listing endpoints return.
type ItemsPage[T any] struct {
	Items            []T `json:"Items"`
	TotalRecordCount int `json:"TotalRecordCount"`
}

// ChannelItem is one entry of /LiveTv/Channels.
type ChannelItem struct {
	ID            string            `json:"Id"`
	Name          string            `json:"Name"`
	ChannelNumber Number            `json:"ChannelNumber"`
	Type          string            `json:"Type"`
	ImageTags     map[string]string `json:"ImageTags"`
}

// GroupItem is one entry of /LiveTv/ChannelGroups.
type GroupItem struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// ProgramItem is one entry of /LiveTv/Programs.
type ProgramItem struct {
	ID             string `json:"Id"`
	ChannelID      string `json:"ChannelId"`
	Name           string `json:"Name"`
	Overview       string `json:"Overview"`
	EpisodeTitle   string `json:"EpisodeTitle"`
	StartDate      string `json:"StartDate"`
	EndDate        string `json:"EndDate"`
	ParentalRating int    `json:"ParentalRating"`
	SeriesID       string `json:"SeriesId"`
	IndexNumber    int    `json:"IndexNumber"`
}

// RecordingItem is one entry of /LiveTv/Recordings.
type RecordingItem struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	ChannelName string `json:"ChannelName"`
	Overview    string `json:"Overview"`
	SeriesName  string `json:"SeriesName"`
	StartDate   string `json:"StartDate"`
	EndDate     string `json:"EndDate"`
	UserData    struct {
		PlayCount int `json:"PlayCount"`
	} `json:"UserData"`
}

// TimerItem is one entry of /LiveTv/Timers.
type TimerItem struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	ChannelID string `json:"ChannelId"`
	StartDate string `json:"StartDate"`
	EndDate   string `json:"EndDate"`
	Status    string `json:"Status"`
}

// CreateTimerRequest is the body of POST /LiveTv/Timers.
type CreateTimerRequest struct {
	Name      string `json:"Name"`
	ChannelID string `json:"ChannelId"`
	StartDate string `json:"StartDate"`
	EndDate   string `json:"EndDate"`
}

// AuthUser is the nested user object of an authentication response.
type AuthUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// AuthResponse is returned by /Users/AuthenticateByName.
type AuthResponse struct {
	AccessToken string   `json:"AccessToken"`
	User        AuthUser `json:"User"`
}

// QuickConnectInitiate is returned by /QuickConnect/Initiate.
type QuickConnectInitiate struct {
	Code   string `json:"Code"`
	Secret string `json:"Secret"`
}

// QuickConnectState is returned by /QuickConnect/Connect.
type QuickConnectState struct {
	Authenticated  bool `json:"Authenticated"`
	Authentication struct {
		AccessToken string `json:"AccessToken"`
		UserID      string `json:"UserId"`
	} `json:"Authentication"`
}

// UserInfo is returned by /Users/{id}; only the identity matters here.
type UserInfo struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// SystemInfo is returned by /System/Info.
type SystemInfo struct {
	Version    string `json:"Version"`
	ServerName string `json:"ServerName"`
	ID         string `json:"Id"`
}

// MediaSource describes one playable representation inside a PlaybackInfo
// response.
type MediaSource struct {
	ID           string `json:"Id"`
	Path         string `json:"Path"`
	LiveStreamID string `json:"LiveStreamId"`
	Protocol     string `json:"Protocol"`
	Container    string `json:"Container"`
}

// PlaybackInfo is returned by POST /Items/{id}/PlaybackInfo.
type PlaybackInfo struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
}
