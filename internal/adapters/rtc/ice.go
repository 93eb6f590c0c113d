// Package rtc turns configured STUN/TURN servers into the WebRTC
// configuration clients use for their direct peer connections.
package rtc

import (
	"github.com/dkeye/voicesignal/internal/config"
	"github.com/pion/webrtc/v4"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// WebRTCConfig maps configured servers onto pion's types. With nothing
// configured it falls back to DefaultWebRTCConfig.
func WebRTCConfig(servers []config.ICEServer) webrtc.Configuration {
	if len(servers) == 0 {
		return DefaultWebRTCConfig()
	}
	out := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(servers))}
	for _, s := range servers {
		srv := webrtc.ICEServer{
			URLs:     append([]string(nil), s.URLs...),
			Username: s.Username,
		}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out.ICEServers = append(out.ICEServers, srv)
	}
	return out
}

// ICEResponse is the body served to browsers, shaped like RTCConfiguration.
type ICEResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func NewICEResponse(cfg webrtc.Configuration) ICEResponse {
	return ICEResponse{ICEServers: cfg.ICEServers}
}
