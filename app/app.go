package app

import (
	"github.com/go-chi/jwtauth"
	"github.com/mbolis/brand-survey/config"
	"github.com/mbolis/brand-survey/metrics"
	"github.com/mbolis/brand-survey/session"
	"github.com/mbolis/brand-survey/store"
)

type App struct {
	Store    *store.Store
	Sessions *session.Manager
	Tokens   *jwtauth.JWTAuth
	Metrics  *metrics.Metrics
	config.Config
}
