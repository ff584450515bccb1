package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/api"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
)

// mountAdmin adds the /admin routes behind the API-key middleware. Nothing is
// mounted when no admin key is configured.
func mountAdmin(r chi.Router, svc simpleasset.Service, cfg *config.ServerConfig) error {
	if cfg.AdminAPIKeySHA256 == "" {
		return nil
	}
	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"admin": cfg.AdminAPIKeySHA256,
		},
	})
	if err != nil {
		return err
	}
	adminHandler := api.NewAdminHandler(svc, cfg.PurgeRetention, cfg.PurgeBatch)
	r.Route("/admin", func(r chi.Router) {
		r.Use(apiKeyMiddleware)
		r.Mount("/", adminHandler.Routes())
	})
	return nil
}
