package api

import (
	"encoding/json"

	"github.com/chesscast/chesscast/pkg/media"
)

type (
	TokenRequest struct {
		Token string `json:"token"`
	}
	StartStreamRequest struct {
		TokenRequest
		ModelPath string `json:"modelPath,omitempty"`
	}
	CreateTransportRequest struct {
		TokenRequest
		Direction media.Direction `json:"direction"`
	}
	ConnectTransportRequest struct {
		TokenRequest
		DtlsParameters *media.DtlsParameters `json:"dtlsParameters"`
		IceParameters  *media.IceParameters  `json:"iceParameters,omitempty"`
		IceCandidates  []media.IceCandidate  `json:"iceCandidates,omitempty"`
	}
	ProduceRequest struct {
		TokenRequest
		TransportId   string               `json:"transportId"`
		Kind          string               `json:"kind,omitempty"`
		RtpParameters *media.RtpParameters `json:"rtpParameters"`
	}
	ConsumeRequest struct {
		TokenRequest
		TransportId     string                 `json:"transportId"`
		ProducerId      string                 `json:"producerId"`
		RtpCapabilities *media.RtpCapabilities `json:"rtpCapabilities,omitempty"`
	}
)

func (r TokenRequest) Validate() error { return ValidToken(r.Token) }

func (r CreateTransportRequest) Validate() error {
	if err := r.TokenRequest.Validate(); err != nil {
		return err
	}
	if r.Direction == "" {
		return MissingField("direction")
	}
	if !r.Direction.IsValid() {
		return media.ErrBadDirection
	}
	return nil
}

func (r ConnectTransportRequest) Validate() error {
	if err := r.TokenRequest.Validate(); err != nil {
		return err
	}
	if r.DtlsParameters == nil {
		return MissingField("dtlsParameters")
	}
	return nil
}

func (r ProduceRequest) Validate() error {
	if err := r.TokenRequest.Validate(); err != nil {
		return err
	}
	if r.TransportId == "" {
		return MissingField("transportId")
	}
	if r.RtpParameters == nil {
		return MissingField("rtpParameters")
	}
	return nil
}

func (r ConsumeRequest) Validate() error {
	if err := r.TokenRequest.Validate(); err != nil {
		return err
	}
	if r.TransportId == "" {
		return MissingField("transportId")
	}
	if r.ProducerId == "" {
		return MissingField("producerId")
	}
	return nil
}

// Remote converts the request into the media connection parameters.
func (r ConnectTransportRequest) Remote() media.RemoteParams {
	rp := media.RemoteParams{IceParameters: r.IceParameters, IceCandidates: r.IceCandidates}
	if r.DtlsParameters != nil {
		rp.DtlsParameters = *r.DtlsParameters
	}
	return rp
}

type (
	StreamResponse struct {
		Token string `json:"token"`
	}
	IdResponse struct {
		Id string `json:"id"`
	}
	CalibrationResponse struct {
		Message     string          `json:"message"`
		MappingData json.RawMessage `json:"mappingData,omitempty"`
	}
	ErrorResponse struct {
		Message string `json:"message"`
	}
	MappingResponse struct {
		HasMapping bool `json:"hasMapping"`
	}
)
