package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/lead-qualifier/internal/model"
)

func decodeOffer(r *http.Request) (model.OfferInput, error) {
	var in model.OfferInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, model.Validation("invalid request body", err.Error())
	}
	in = in.Normalize()
	return in, in.Validate()
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	in, err := decodeOffer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offer, err := s.store.CreateOffer(r.Context(), in)
	if err != nil {
		writeError(w, r, model.Persistence(err, "failed to create offer"))
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) updateOffer(w http.ResponseWriter, r *http.Request) {
	in, err := decodeOffer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offer, err := s.store.UpdateOffer(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.store.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.store.ListOffers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if offers == nil {
		offers = []model.Offer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) latestOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.store.LatestOffer(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if offer == nil {
		writeError(w, r, &model.Error{Kind: model.KindNotFound, Message: "No offer found"})
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) deleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteOffer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
