package routes

import (
	"example.com/medipi/hub/api/handlers"
	"example.com/medipi/hub/api/middleware"
	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(
	r *gin.Engine,
	svc service.Service,
	network handlers.DeviceNetwork,
	discovery handlers.DiscoveryRegistry,
	session config.SessionConfig,
	log *logrus.Logger,
) {
	// Health check
	r.GET("/health", handlers.HealthCheck(svc))

	// Auth routes, open except for /me
	authHandler := handlers.NewAuthHandler(svc, session, log)
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.SessionAuth(svc, session, log), authHandler.Me)
	}

	// Everything below requires a valid session
	api := r.Group("/api/v1")
	api.Use(middleware.SessionAuth(svc, session, log))

	// Patient routes
	patientHandler := handlers.NewPatientHandler(svc, log)
	patients := api.Group("/patients")
	{
		patients.POST("", patientHandler.CreatePatient)
		patients.GET("", patientHandler.ListPatients)
		patients.GET("/:id", patientHandler.GetPatient)
		patients.PUT("/:id", patientHandler.UpdatePatient)
		patients.DELETE("/:id", middleware.RequireAdmin(), patientHandler.DeletePatient)
	}

	// Medication routes
	medicationHandler := handlers.NewMedicationHandler(svc, log)
	medications := api.Group("/medications")
	{
		medications.POST("", medicationHandler.CreateMedication)
		medications.GET("", medicationHandler.ListMedications)
		medications.GET("/:id", medicationHandler.GetMedication)
		medications.PUT("/:id", medicationHandler.UpdateMedication)
		medications.DELETE("/:id", middleware.RequireAdmin(), medicationHandler.DeleteMedication)
		medications.POST("/:id/stock", medicationHandler.AdjustStock)
	}

	// Dispenser and schedule routes
	dispenserHandler := handlers.NewDispenserHandler(svc, log)
	dispensers := api.Group("/dispensers")
	{
		dispensers.POST("", dispenserHandler.CreateDispenser)
		dispensers.GET("", dispenserHandler.ListDispensers)
		dispensers.GET("/:id", dispenserHandler.GetDispenser)
		dispensers.PUT("/:id", dispenserHandler.UpdateDispenserStatus)
		dispensers.DELETE("/:id", middleware.RequireAdmin(), dispenserHandler.DeleteDispenser)
		dispensers.PUT("/:id/patient", dispenserHandler.AssignPatient)
		dispensers.DELETE("/:id/patient", dispenserHandler.UnassignPatient)

		dispensers.POST("/:id/schedules", dispenserHandler.CreateSchedule)
		dispensers.GET("/:id/schedules", dispenserHandler.ListSchedules)
		dispensers.GET("/:id/schedules/:scheduleId", dispenserHandler.GetSchedule)
		dispensers.PUT("/:id/schedules/:scheduleId", dispenserHandler.UpdateSchedule)
		dispensers.DELETE("/:id/schedules/:scheduleId", dispenserHandler.DeleteSchedule)
	}

	// Dashboard routes
	dashboardHandler := handlers.NewDashboardHandler(svc, log)
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/stats", dashboardHandler.GetStats)
		dashboard.GET("/alerts", dashboardHandler.GetAlerts)
		dashboard.GET("/recent-logs", dashboardHandler.GetRecentLogs)
	}

	// Live device-network routes
	liveHandler := handlers.NewLiveHandler(network, discovery, svc, log)
	live := api.Group("/live")
	{
		live.GET("/dispensers", liveHandler.GetLiveDispensers)
		live.GET("/discovered", liveHandler.GetDiscoveredDispensers)
		live.POST("/scan", liveHandler.ScanForDispensers)
	}
}
