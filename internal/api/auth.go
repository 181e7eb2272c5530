package api

import (
	"net/http"

	"assetbridge-nexus/internal/auth"
	"assetbridge-nexus/internal/store"

	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
	Country     *string `json:"country"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "User registered successfully", session)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "Login successful", session)
}

func (s *Server) walletConnect(w http.ResponseWriter, r *http.Request) {
	var req auth.WalletConnectRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.auth.WalletConnect(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "Wallet connected successfully", session)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Profile(r.Context(), claimsFrom(r.Context()).UserId)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Profile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.auth.UpdateProfile(r.Context(), chi.URLParam(r, "userId"), store.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "Profile updated successfully", user)
}
