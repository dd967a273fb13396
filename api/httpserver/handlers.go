package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"kestrel/domain/book"
	"kestrel/service"
)

type placeRequest struct {
	ID    uint64 `json:"id,omitempty"`
	Owner uint64 `json:"owner,omitempty"`
	Side  string `json:"side"`
	Type  string `json:"type,omitempty"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
}

type placeResponse struct {
	OrderID uint64       `json:"order_id"`
	Seq     uint64       `json:"seq"`
	Status  string       `json:"status"`
	Trades  []book.Trade `json:"trades,omitempty"`
}

type modifyRequest struct {
	Side  string `json:"side"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
}

type bestResponse struct {
	Bid *int64 `json:"bid"`
	Ask *int64 `json:"ask"`
}

type depthResponse struct {
	Instrument string            `json:"instrument"`
	Bids       []book.LevelDepth `json:"bids"`
	Asks       []book.LevelDepth `json:"asks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be bid or ask")
		return
	}
	typ, ok := parseOrderType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown order type")
		return
	}

	res, err := s.svc.PlaceOrder(service.PlaceRequest{
		ID:    req.ID,
		Owner: req.Owner,
		Side:  side,
		Type:  typ,
		Price: req.Price,
		Qty:   req.Qty,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeResponse{
		OrderID: res.OrderID,
		Seq:     res.Seq,
		Status:  res.Status.String(),
		Trades:  res.Trades,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := s.svc.CancelOrder(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be bid or ask")
		return
	}

	trades, err := s.svc.ModifyOrder(id, side, req.Qty, req.Price)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, placeResponse{
		OrderID: id,
		Status:  book.Active.String(),
		Trades:  trades,
	})
}

func (s *Server) handleDepth(w http.ResponseWriter, _ *http.Request) {
	bids, asks := s.svc.Depth()
	writeJSON(w, http.StatusOK, depthResponse{
		Instrument: s.svc.Instrument(),
		Bids:       bids,
		Asks:       asks,
	})
}

func (s *Server) handleBest(w http.ResponseWriter, _ *http.Request) {
	var resp bestResponse
	if bid, ok := s.svc.BestBid(); ok {
		resp.Bid = &bid
	}
	if ask, ok := s.svc.BestAsk(); ok {
		resp.Ask = &ask
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUncross(w http.ResponseWriter, _ *http.Request) {
	trades := s.svc.UncrossBook()
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, book.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, book.ErrInvalidModify):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, book.ErrInvalidOrder), errors.Is(err, book.ErrDuplicateOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("command failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseSide(s string) (book.Side, bool) {
	switch s {
	case "bid", "buy":
		return book.Bid, true
	case "ask", "sell":
		return book.Ask, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (book.OrderType, bool) {
	switch s {
	case "", "limit":
		return book.Limit, true
	case "market":
		return book.Market, true
	case "ioc":
		return book.IOC, true
	case "fok":
		return book.FOK, true
	case "post_only":
		return book.PostOnly, true
	default:
		return 0, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
