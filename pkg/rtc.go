package relay

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
)

// RTCState tracks offer/answer progress for one peer connection.
type RTCState int

const (
	RTCIdle RTCState = iota
	RTCOfferReceived
	RTCAnswerSent
	RTCConnected
	RTCClosed
)

func (s RTCState) String() string {
	switch s {
	case RTCOfferReceived:
		return "OfferReceived"
	case RTCAnswerSent:
		return "AnswerSent"
	case RTCConnected:
		return "Connected"
	case RTCClosed:
		return "Closed"
	default:
		return "Idle"
	}
}

// RTCSession is the low-latency screen path for one agent: the agent sends
// an SDP offer through the hub, the console answers and the media flows
// peer to peer. One session per connection; a new offer replaces the prior
// session wholesale.
//
// Candidates that arrive between the offer and the answer are queued and
// flushed once the local description is set. Candidates with no live
// session are dropped by the multiplexer before reaching here.
type RTCSession struct {
	mu      sync.Mutex
	agentID string
	emitter *Emitter
	pc      *webrtc.PeerConnection
	state   RTCState
	pending []webrtc.ICECandidateInit

	// OnTrack fires when remote media starts, with the track kind.
	OnTrack func(kind string)
}

func NewRTCSession(agentID string, emitter *Emitter) *RTCSession {
	return &RTCSession{
		agentID: agentID,
		emitter: emitter,
		state:   RTCIdle,
	}
}

// State returns the current negotiation state.
func (s *RTCSession) State() RTCState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AgentID returns the agent this session is negotiating with.
func (s *RTCSession) AgentID() string {
	return s.agentID
}

// HandleOffer answers an inbound SDP offer: set remote, create and set the
// local answer, emit it back, then flush any queued candidates. Local
// candidates trickle out as they are discovered.
func (s *RTCSession) HandleOffer(sdp string) error {
	s.mu.Lock()
	if s.state == RTCClosed {
		s.mu.Unlock()
		return fmt.Errorf("session for %s already closed", s.agentID)
	}
	s.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("creating peer connection: %w", err)
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return // gathering finished
		}
		init := candidate.ToJSON()
		push := CandidatePush{Candidate: init.Candidate}
		if init.SDPMid != nil {
			push.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			push.SDPMLineIndex = *init.SDPMLineIndex
		}
		s.emitter.SendCandidate(push)
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		logrus.Infof("rtc %s ice state %s", s.agentID, state.String())
		switch state {
		case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
			s.mu.Lock()
			if s.state == RTCAnswerSent {
				s.state = RTCConnected
			}
			s.mu.Unlock()
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		logrus.Infof("rtc %s remote track %s", s.agentID, track.Kind().String())
		s.mu.Lock()
		onTrack := s.OnTrack
		s.mu.Unlock()
		if onTrack != nil {
			onTrack(track.Kind().String())
		}
	})

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}

	s.mu.Lock()
	s.pc = pc
	s.state = RTCOfferReceived
	s.mu.Unlock()

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		s.Close()
		return fmt.Errorf("creating answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		s.Close()
		return fmt.Errorf("setting local description: %w", err)
	}

	s.emitter.SendAnswer(answer.SDP)

	s.mu.Lock()
	s.state = RTCAnswerSent
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, candidate := range queued {
		if err := pc.AddICECandidate(candidate); err != nil {
			logrus.Errorf("adding queued candidate for %s failed %v", s.agentID, err)
		}
	}
	return nil
}

// AddCandidate feeds an inbound remote candidate to the peer connection,
// queueing it if the answer is still in flight.
func (s *RTCSession) AddCandidate(push CandidatePush) {
	mid := push.SDPMid
	index := push.SDPMLineIndex
	init := webrtc.ICECandidateInit{
		Candidate:     push.Candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	}

	s.mu.Lock()
	if s.state == RTCClosed {
		s.mu.Unlock()
		return
	}
	if s.pc == nil || s.state < RTCAnswerSent {
		s.pending = append(s.pending, init)
		s.mu.Unlock()
		return
	}
	pc := s.pc
	s.mu.Unlock()

	if err := pc.AddICECandidate(init); err != nil {
		logrus.Errorf("adding candidate for %s failed %v", s.agentID, err)
	}
}

// Close tears the session down. Idempotent; late candidates against a
// closed session are dropped, not an error.
func (s *RTCSession) Close() {
	s.mu.Lock()
	pc := s.pc
	s.pc = nil
	s.state = RTCClosed
	s.pending = nil
	s.mu.Unlock()

	if pc != nil {
		if err := pc.Close(); err != nil {
			logrus.Errorf("closing peer connection for %s failed %v", s.agentID, err)
		}
	}
}
