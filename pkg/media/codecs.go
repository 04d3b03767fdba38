package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"
)

const videoClockRate = 90000

var ErrNoCodec = errors.New("no supported codec")

type param struct {
	key   string
	value any
}

type codec struct {
	mime string
	pt   uint8
	// ordered as in fmtp
	params []param
}

// preferred is the router codec list, the first usable codec wins.
var preferred = []codec{
	{mime: webrtc.MimeTypeVP8, pt: 96, params: []param{
		{"x-google-start-bitrate", 1000},
	}},
	{mime: webrtc.MimeTypeVP9, pt: 98, params: []param{
		{"profile-id", 2},
		{"x-google-start-bitrate", 1000},
	}},
	{mime: webrtc.MimeTypeH264, pt: 102, params: []param{
		{"packetization-mode", 1},
		{"profile-level-id", "4d0032"},
		{"level-asymmetry-allowed", 1},
		{"x-google-start-bitrate", 1000},
	}},
}

var feedback = []RtcpFeedback{
	{Type: "nack"},
	{Type: "nack", Parameter: "pli"},
	{Type: "ccm", Parameter: "fir"},
	{Type: "goog-remb"},
}

func (c codec) fmtp() string {
	kv := make([]string, 0, len(c.params))
	for _, p := range c.params {
		kv = append(kv, fmt.Sprintf("%v=%v", p.key, p.value))
	}
	return strings.Join(kv, ";")
}

func (c codec) parameters() map[string]any {
	m := make(map[string]any, len(c.params))
	for _, p := range c.params {
		m[p.key] = p.value
	}
	return m
}

func (c codec) pion() webrtc.RTPCodecCapability {
	fb := make([]webrtc.RTCPFeedback, 0, len(feedback))
	for _, f := range feedback {
		fb = append(fb, webrtc.RTCPFeedback{Type: f.Type, Parameter: f.Parameter})
	}
	return webrtc.RTPCodecCapability{
		MimeType:     c.mime,
		ClockRate:    videoClockRate,
		SDPFmtpLine:  c.fmtp(),
		RTCPFeedback: fb,
	}
}

func (c codec) parametersOf() RtpCodecParameters {
	return RtpCodecParameters{
		MimeType:     c.mime,
		PayloadType:  c.pt,
		ClockRate:    videoClockRate,
		Parameters:   c.parameters(),
		RtcpFeedback: append([]RtcpFeedback{}, feedback...),
	}
}

// Capabilities returns the router RTP capabilities.
func Capabilities() RtpCapabilities {
	caps := RtpCapabilities{Codecs: make([]RtpCodecCapability, 0, len(preferred))}
	for _, c := range preferred {
		caps.Codecs = append(caps.Codecs, RtpCodecCapability{
			Kind:                 "video",
			MimeType:             c.mime,
			PreferredPayloadType: c.pt,
			ClockRate:            videoClockRate,
			Parameters:           c.parameters(),
			RtcpFeedback:         append([]RtcpFeedback{}, feedback...),
		})
	}
	return caps
}

// RegisterCodecs registers the router codecs in a pion media engine.
func RegisterCodecs(m *webrtc.MediaEngine) error {
	for _, c := range preferred {
		err := m.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: c.pion(),
			PayloadType:        webrtc.PayloadType(c.pt),
		}, webrtc.RTPCodecTypeVideo)
		if err != nil {
			return fmt.Errorf("codec %v: %w", c.mime, err)
		}
	}
	return nil
}

// negotiate picks the first router codec that the remote side has.
func negotiate(remote []RtpCodecParameters) (codec, RtpCodecParameters, error) {
	for _, c := range preferred {
		for _, r := range remote {
			if strings.EqualFold(r.MimeType, c.mime) && compatible(c, r) {
				return c, r, nil
			}
		}
	}
	return codec{}, RtpCodecParameters{}, ErrNoCodec
}

// compatible checks the parameters that must match exactly.
func compatible(c codec, r RtpCodecParameters) bool {
	if c.mime != webrtc.MimeTypeH264 {
		return true
	}
	for _, p := range c.params {
		if p.key != "packetization-mode" {
			continue
		}
		v, ok := r.Parameters[p.key]
		return !ok || fmt.Sprint(v) == fmt.Sprint(p.value)
	}
	return true
}

// supports checks that the capabilities have the codec.
func (caps RtpCapabilities) supports(c codec) bool {
	for _, cc := range caps.Codecs {
		if strings.EqualFold(cc.MimeType, c.mime) {
			return true
		}
	}
	return false
}
