package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Provisioning
		r.Route("/provision", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/{subscription_id}", s.HandleProvision)
		})

		// Billing
		r.Route("/billing", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/sync", s.HandleBillingSync)
			r.Get("/subscriptions", s.HandleListSubscriptions)
			r.Get("/products", s.HandleListBillingProducts)
			r.Get("/plans", s.HandleListBillingPlans)
		})

		// External tenants
		r.Route("/tenants", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListTenants)
			r.Get("/unlinked", s.HandleListUnlinkedTenants)
			r.Route("/{tenant_id}", func(r chi.Router) {
				r.Post("/link", s.HandleLinkTenant)
				r.Post("/activate", s.HandleActivateTenant)
				r.Post("/deactivate", s.HandleDeactivateTenant)
				r.Post("/schedule-deactivation", s.HandleScheduleDeactivation)
			})
		})

		// Device profiles
		r.Route("/profiles", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListDeviceProfiles)
			r.Get("/sync", s.HandleSyncDeviceProfiles)
			r.Put("/{id}/default", s.HandleSetDefaultDeviceProfile)
			r.Delete("/{id}", s.HandleDeleteDeviceProfile)
		})

		// Use-case mappings
		r.Route("/usecases", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUseCaseMappings)
			r.Post("/", s.HandleCreateUseCaseMapping)
			r.Delete("/{id}", s.HandleDeleteUseCaseMapping)
		})

		// Plan-profile mappings
		r.Route("/plan-mappings", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListPlanProfileMappings)
			r.Post("/", s.HandleCreatePlanProfileMapping)
			r.Delete("/{id}", s.HandleDeletePlanProfileMapping)
		})

		// Task templates
		r.Route("/task-templates", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListTaskTemplates)
			r.Post("/", s.HandleCreateTaskTemplate)
			r.Delete("/{id}", s.HandleDeleteTaskTemplate)
		})

		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListProjects)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetProject)
				r.Put("/assign/{user_id}", s.HandleAssignProject)
				r.Post("/tasks", s.HandleCreateTask)
				r.Post("/tasks/from-template/{template_id}", s.HandleCreateTaskFromTemplate)
			})
		})

		// Tasks
		r.Route("/tasks", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Put("/{id}", s.HandleUpdateTask)
			r.Get("/{id}/comments", s.HandleListTaskComments)
		})
	})
}
