package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/chesscast/chesscast/pkg/api"
	"github.com/chesscast/chesscast/pkg/calibration"
)

const (
	msgCalibrationStarted = "Starting board calibration..."
	msgFrameRequired      = "Token and frame are required"
)

// request unwraps and validates the event payload,
// the client gets the error otherwise.
func request[T any, P interface {
	*T
	Validate() error
}](c *Client, data json.RawMessage) *T {
	rq, err := api.Unwrap[T](data)
	if err != nil {
		c.Error(err.Error())
		return nil
	}
	if err = P(rq).Validate(); err != nil {
		c.Error(err.Error())
		return nil
	}
	return rq
}

func (h *Hub) handleStartStream(c *Client, data json.RawMessage) {
	rq := request[api.StartStreamRequest](c, data)
	if rq == nil {
		return
	}
	if prev := h.sessions.SetStreamer(rq.Token, c.Id()); prev != "" {
		c.log.Info().Str("token", rq.Token).Str("previous", prev).Msg("Stream taken over")
	}
	if !h.calibrator.HasMapping(rq.Token) && h.calibrator.Restore(h.ctx, rq.Token) {
		h.sessions.MarkCalibrated(rq.Token)
	}
	if err := h.startWorker(rq.Token, rq.ModelPath); err != nil {
		c.log.Error().Err(err).Str("token", rq.Token).Msg("Recognition worker start fail")
		c.Error(err.Error())
		return
	}
	c.log.Info().Str("token", rq.Token).Msg("Stream started")
	c.Notify(api.StreamStarted, api.StreamResponse{Token: rq.Token})
}

func (h *Hub) handleJoinStream(c *Client, data json.RawMessage) {
	rq := request[api.TokenRequest](c, data)
	if rq == nil {
		return
	}
	role := h.sessions.AddViewer(rq.Token, c.Id())
	c.log.Info().Str("token", rq.Token).Str("role", role.String()).Msg("Stream joined")
	c.Notify(api.StreamJoined, api.StreamResponse{Token: rq.Token})
}

func (h *Hub) handleGetRouterRtpCapabilities(c *Client, data json.RawMessage) {
	rq := request[api.TokenRequest](c, data)
	if rq == nil {
		return
	}
	c.Notify(api.RouterRtpCapabilities, h.media.EnsureRoom(rq.Token))
}

func (h *Hub) handleCreateTransport(c *Client, data json.RawMessage) {
	rq := request[api.CreateTransportRequest](c, data)
	if rq == nil {
		return
	}
	info, err := h.media.CreateTransport(rq.Token, c.Id(), rq.Direction)
	if err != nil {
		c.log.Error().Err(err).Str("token", rq.Token).Msg("Transport create fail")
		c.Error(err.Error())
		return
	}
	h.sessions.MarkMediaRoom(rq.Token, c.Id())
	c.Notify(api.TransportCreated, info)
}

func (h *Hub) handleConnectTransport(c *Client, data json.RawMessage) {
	rq := request[api.ConnectTransportRequest](c, data)
	if rq == nil {
		return
	}
	id, err := h.media.ConnectTransport(rq.Token, c.Id(), rq.Remote())
	if err != nil {
		c.Error(err.Error())
		return
	}
	c.Notify(api.TransportConnected, api.IdResponse{Id: id})
}

// handleProduce makes the client the streamer of the token
// and starts recognition with the default model.
func (h *Hub) handleProduce(c *Client, data json.RawMessage) {
	rq := request[api.ProduceRequest](c, data)
	if rq == nil {
		return
	}
	info, err := h.media.Produce(rq.Token, c.Id(), rq.TransportId, rq.Kind, *rq.RtpParameters)
	if err != nil {
		c.Error(err.Error())
		return
	}
	h.sessions.SetStreamer(rq.Token, c.Id())
	c.Notify(api.Produced, info)

	if err = h.startWorker(rq.Token, ""); err != nil {
		c.log.Error().Err(err).Str("token", rq.Token).Msg("Recognition worker start fail")
		c.Error(err.Error())
	}
}

func (h *Hub) handleConsume(c *Client, data json.RawMessage) {
	rq := request[api.ConsumeRequest](c, data)
	if rq == nil {
		return
	}
	info, err := h.media.Consume(rq.Token, c.Id(), rq.TransportId, rq.ProducerId, rq.RtpCapabilities)
	if err != nil {
		c.Error(err.Error())
		return
	}
	c.Notify(api.Consumed, info)
}

// handleFrame feeds the recognition worker with the frame and sends it to the viewers.
// The first frame of an uncalibrated stream starts the board calibration.
func (h *Hub) handleFrame(c *Client, data []byte) {
	token, image, err := api.DecodeFrame(data)
	if err != nil || len(image) == 0 {
		c.Error(msgFrameRequired)
		return
	}
	if err = api.ValidToken(token); err != nil {
		c.Error(err.Error())
		return
	}

	if !h.calibrator.HasMapping(token) && h.sessions.TryBeginCalibration(token, c.Id()) {
		c.Notify(api.CalibrationStarted, api.CalibrationResponse{Message: msgCalibrationStarted})
		h.calibrate(c, token, image)
	}

	if err = h.recognizer.Send(token, image); err != nil {
		c.Error(err.Error())
	}
	h.relay(token, c.Id(), data)
}

// calibrate runs the calibration in the background, the outcome goes to the client.
func (h *Hub) calibrate(c *Client, token string, image []byte) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res := h.calibrator.Calibrate(h.ctx, token, image)
		h.sessions.FinishCalibration(token, res.Success)
		if !res.Success {
			c.Error(failedCalibration(res))
			return
		}
		c.Notify(api.CalibrationCompleted, api.CalibrationResponse{Message: res.Message, MappingData: res.MappingData})
	}()
}

func failedCalibration(res calibration.Result) string {
	return fmt.Sprintf("Calibration failed: %s. Please ensure the board is empty.", res.Reason())
}

// handleStopStream ends the token stream for everyone.
// The session goes away with its roles, viewers have to join again.
func (h *Hub) handleStopStream(c *Client, data json.RawMessage) {
	rq := request[api.TokenRequest](c, data)
	if rq == nil {
		return
	}
	h.recognizer.Stop(rq.Token)
	h.media.CloseRoom(rq.Token)

	out := api.StreamResponse{Token: rq.Token}
	snap, ok := h.sessions.EndStream(rq.Token)
	if ok {
		members := snap.Viewers
		if snap.Streamer != "" {
			members = append([]string{snap.Streamer}, members...)
		}
		// the sender is notified below
		others := members[:0]
		for _, id := range members {
			if id != c.Id() {
				others = append(others, id)
			}
		}
		h.notifyAll(others, api.StreamStopped, out)
	}
	c.log.Info().Str("token", rq.Token).Msg("Stream stopped")
	c.Notify(api.StreamStopped, out)
}
