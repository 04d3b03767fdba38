package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/chesscast/chesscast/pkg/api"
	"github.com/chesscast/chesscast/pkg/network/httpx"
	"github.com/goccy/go-json"
)

const (
	msgImageRequired = "Image file is required"
	imageField       = "image"
	// multipart parts above it go to temp files
	memoryLimit = 8 << 20
)

type httpError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

// Routes adds the websocket endpoint and the calibration API into the mux.
func (h *Hub) Routes(mux *httpx.Mux) {
	mux.HandleFunc(h.conf.Path, h.handleWebsocket)
	mux.HandleFunc(h.conf.ApiPrefix+"/chess-recognition/{token}/calibrate", h.handleCalibrate)
	mux.HandleFunc(h.conf.ApiPrefix+"/chess-recognition/{token}/mapping", h.handleMapping)
}

// handleCalibrate calibrates the token board with an uploaded empty board image.
func (h *Hub) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}
	token := r.PathValue("token")
	if err := api.ValidToken(token); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.conf.MaxMessageSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.conf.MaxMessageSize)
	}
	image, err := formFile(r, imageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, http.StatusBadRequest, msgImageRequired)
		return
	}

	res := h.calibrator.Calibrate(r.Context(), token, image)
	if !res.Success {
		writeError(w, http.StatusBadRequest, res.Message)
		return
	}
	h.sessions.MarkCalibrated(token)
	writeJSON(w, http.StatusCreated, res)
}

func (h *Hub) handleMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}
	token := r.PathValue("token")
	if err := api.ValidToken(token); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.MappingResponse{HasMapping: h.calibrator.HasMapping(token)})
}

// formFile reads the whole form file, empty files are missing ones.
func formFile(r *http.Request, name string) ([]byte, error) {
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, http.ErrMissingFile
	}
	return data, nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, httpError{StatusCode: code, Message: message, Error: http.StatusText(code)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
