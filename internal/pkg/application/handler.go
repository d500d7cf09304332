package application

import (
	"compress/flate"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/energy"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/config"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/metrics"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"

	ngsi "github.com/iot-for-tillgenglighet/ngsi-ld-golang/pkg/ngsi-ld"
)

type RequestRouter struct {
	impl    *chi.Mux
	metrics *metrics.Metrics
}

func (router *RequestRouter) addEnergyHandlers(api *energyAPI) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Get("/cities", api.listCities)
	router.Get("/cities/{cityID}/area", api.getAreaForCity)
	router.Get("/cities/{cityID}/areas", api.listAreasForCity)
	router.Get("/areas/{areaID}/units", api.listLightingUnits)

	router.Get("/energy/data/{areaID}", api.getEnergyData)
	router.Get("/energy/recommendation/{areaID}", api.getRecommendation)
	router.Get("/energy/savings_scenario/{areaID}", api.getSavingsScenario)
	router.Post("/energy/readings", api.appendReadings)

	router.impl.Handle("/metrics", router.metrics.Handler())
}

func (router *RequestRouter) addNGSIHandlers(contextRegistry ngsi.ContextRegistry) {
	router.Get("/ngsi-ld/v1/entities", ngsi.NewQueryEntitiesHandler(contextRegistry))
	router.Get("/ngsi-ld/v1/entities/{entity}", ngsi.NewRetrieveEntityHandler(contextRegistry))
}

//Get accepts a pattern that should be routed to the handlerFn on a GET request
func (router *RequestRouter) Get(pattern string, handlerFn http.HandlerFunc) {
	router.impl.Get(pattern, router.metrics.WrapHandler(pattern, handlerFn).ServeHTTP)
}

//Post accepts a pattern that should be routed to the handlerFn on a POST request
func (router *RequestRouter) Post(pattern string, handlerFn http.HandlerFunc) {
	router.impl.Post(pattern, router.metrics.WrapHandler(pattern, handlerFn).ServeHTTP)
}

func newRequestRouter(m *metrics.Metrics) *RequestRouter {
	router := &RequestRouter{impl: chi.NewRouter(), metrics: m}

	router.impl.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)

	// Enable compression for json and ngsi-ld responses
	compressor := middleware.NewCompressor(flate.DefaultCompression, "application/json", "application/ld+json")
	router.impl.Use(compressor.Handler)
	router.impl.Use(middleware.Logger)

	return router
}

func createRequestRouter(contextRegistry ngsi.ContextRegistry, api *energyAPI, m *metrics.Metrics) *RequestRouter {
	router := newRequestRouter(m)

	router.addEnergyHandlers(api)
	router.addNGSIHandlers(contextRegistry)

	return router
}

func createContextRegistry(log logging.Logger, db database.Datastore) ngsi.ContextRegistry {
	contextRegistry := ngsi.NewContextRegistry()
	ctxSource := contextSource{db: db, log: log}
	contextRegistry.Register(&ctxSource)
	return contextRegistry
}

//NewEnergyService wires an energy.Service from the configuration, publishing new recommendations through messenger
func NewEnergyService(cfg *config.Config, log logging.Logger, messenger MessagingContext, db database.Datastore, m *metrics.Metrics) *energy.Service {
	return energy.NewService(db, log,
		energy.WithLocation(cfg.Location),
		energy.WithBaselineKWh(cfg.BaselineKWh),
		energy.WithTariff(cfg.TariffEURPerKWh),
		energy.WithMetrics(m),
		energy.WithPublisher(NewRecommendationPublisher(messenger)),
	)
}

//CreateRouterAndStartServing sets up the dashboard and NGSI-LD routes and starts serving incoming requests
func CreateRouterAndStartServing(cfg *config.Config, log logging.Logger, messenger MessagingContext, db database.Datastore) {
	m := metrics.NewMetrics()
	svc := NewEnergyService(cfg, log, messenger, db, m)

	api := &energyAPI{svc: svc, db: db, log: log}
	router := createRequestRouter(createContextRegistry(log, db), api, m)

	log.Infof("Starting streetlight-energy on port %s.\n", cfg.ServicePort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServicePort, router.impl))
}
