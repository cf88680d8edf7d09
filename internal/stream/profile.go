// SPDX-License-Identifier: MIT

package stream

// Device profile sent with every playback negotiation. It declares what
// the player side can take so the server picks HLS for live TV instead of
// a progressive transcode.

type transcodingProfile struct {
	Container           string `json:"Container,omitempty"`
	Type                string `json:"Type"`
	AudioCodec          string `json:"AudioCodec,omitempty"`
	VideoCodec          string `json:"VideoCodec,omitempty"`
	Context             string `json:"Context,omitempty"`
	Protocol            string `json:"Protocol,omitempty"`
	MaxAudioChannels    string `json:"MaxAudioChannels,omitempty"`
	MinSegments         string `json:"MinSegments,omitempty"`
	BreakOnNonKeyFrames bool   `json:"BreakOnNonKeyFrames,omitempty"`
}

type directPlayProfile struct {
	Type       string `json:"Type"`
	VideoCodec string `json:"VideoCodec,omitempty"`
}

type deviceProfile struct {
	Name                             string               `json:"Name"`
	MaxStreamingBitrate              int                  `json:"MaxStreamingBitrate"`
	MaxStaticBitrate                 int                  `json:"MaxStaticBitrate"`
	MusicStreamingTranscodingBitrate int                  `json:"MusicStreamingTranscodingBitrate"`
	TimelineOffsetSeconds            int                  `json:"TimelineOffsetSeconds"`
	TranscodingProfiles              []transcodingProfile `json:"TranscodingProfiles"`
	DirectPlayProfiles               []directPlayProfile  `json:"DirectPlayProfiles"`
	ResponseProfiles                 []struct{}           `json:"ResponseProfiles"`
	ContainerProfiles                []struct{}           `json:"ContainerProfiles"`
	CodecProfiles                    []struct{}           `json:"CodecProfiles"`
	SubtitleProfiles                 []struct{}           `json:"SubtitleProfiles"`
}

func liveDeviceProfile() deviceProfile {
	return deviceProfile{
		Name:                             "jfpvr",
		MaxStreamingBitrate:              120000000,
		MaxStaticBitrate:                 120000000,
		MusicStreamingTranscodingBitrate: 1280000,
		TimelineOffsetSeconds:            5,
		TranscodingProfiles: []transcodingProfile{
			{
				Container:           "ts",
				Type:                "Video",
				AudioCodec:          "mp3,aac",
				VideoCodec:          "h264",
				Context:             "Streaming",
				Protocol:            "hls",
				MaxAudioChannels:    "2",
				MinSegments:         "1",
				BreakOnNonKeyFrames: true,
			},
			{
				Container:        "m3u8",
				Type:             "Video",
				AudioCodec:       "aac,mp3,ac3,opus,flac,vorbis",
				VideoCodec:       "h264,hevc,mpeg4,mpeg2video,vc1,av1",
				MaxAudioChannels: "6",
			},
			{Type: "Audio"},
			{Container: "jpeg", Type: "Photo"},
		},
		DirectPlayProfiles: []directPlayProfile{
			{Type: "Video", VideoCodec: "h264,hevc,mpeg4,mpeg2video,vc1,vp9,av1"},
			{Type: "Audio"},
			{Type: "Photo"},
		},
		ResponseProfiles:  []struct{}{},
		ContainerProfiles: []struct{}{},
		CodecProfiles:     []struct{}{},
		SubtitleProfiles:  []struct{}{},
	}
}
