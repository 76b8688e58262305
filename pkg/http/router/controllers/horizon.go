package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	helper "github.com/lintang-b-s/ehorizon/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const DEFAULT_REACHABLE_DISTANCE = 500.0

type horizonAPI struct {
	responder
	horizonService HorizonService
	log            *zap.Logger
}

func New(horizonService HorizonService, log *zap.Logger) *horizonAPI {
	return &horizonAPI{
		responder:      responder{log: log},
		horizonService: horizonService,
		log:            log,
	}
}

func (api *horizonAPI) Routes(group *helper.RouteGroup) {
	group.POST("/position", api.updatePosition)
	group.GET("/configuration", api.configuration)
	group.PUT("/configuration", api.updateConfiguration)
	group.GET("/horizon", api.lastUpdate)

	debug := group.Group("/debug")
	debug.GET("/stats", api.stats)
	debug.GET("/edges", api.edges)
	debug.GET("/edges/:id", api.edge)
	debug.GET("/edges/:id/reachable", api.reachable)
	debug.GET("/nodes/:id/edges", api.connectedEdges)
	debug.GET("/match", api.match)
}

// updatePosition godoc
//
//	@Summary		feed a raw vehicle position to the engine
//	@Tags			horizon
//	@Accept			json
//	@Produce		json
//	@Param			body	body	positionRequest	true	"position"
//	@Success		202
//	@Failure		400	{object}	errorResponse
//	@Router			/position [post]
func (api *horizonAPI) updatePosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request positionRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateStruct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	api.horizonService.UpdatePosition(request.Lat, request.Lon)

	if err := writeJSON(w, http.StatusAccepted, envelope{"data": NewPositionResponse(request.Point())}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// configuration godoc
//
//	@Summary	current engine configuration
//	@Tags		horizon
//	@Produce	json
//	@Success	200	{object}	configurationResponse
//	@Router		/configuration [get]
func (api *horizonAPI) configuration(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	cfg, err := api.horizonService.Configuration(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewConfigurationResponse(cfg)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// updateConfiguration godoc
//
//	@Summary	update some of the engine configuration fields, absent fields keep their value
//	@Tags		horizon
//	@Accept		json
//	@Produce	json
//	@Param		body	body		configurationRequest	true	"configuration"
//	@Success	200		{object}	configurationResponse
//	@Failure	400		{object}	errorResponse
//	@Router		/configuration [put]
func (api *horizonAPI) updateConfiguration(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request configurationRequest
	if err := readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateStruct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	cfg, err := request.ToConfiguration()
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	updated, err := api.horizonService.UpdateConfiguration(r.Context(), cfg)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewConfigurationResponse(updated)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// lastUpdate godoc
//
//	@Summary	horizon update of the latest position
//	@Tags		horizon
//	@Produce	json
//	@Success	200	{object}	updateResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/horizon [get]
func (api *horizonAPI) lastUpdate(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	update, err := api.horizonService.LastUpdate(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewUpdateResponse(update)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *horizonAPI) stats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	stats, err := api.horizonService.Stats(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": stats}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *horizonAPI) edges(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	edges, err := api.horizonService.Edges(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewEdgesResponse(edges)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *horizonAPI) edge(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("edge id must be a valid int"))
		return
	}

	edge, err := api.horizonService.Edge(r.Context(), datastructure.EdgeID(id))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewEdgeResponse(edge)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// reachable. edges reachable from the edge within distance meters (default 500) after offset meters.
func (api *horizonAPI) reachable(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("edge id must be a valid int"))
		return
	}

	query := r.URL.Query()
	offset := 0.0
	if v := query.Get("offset"); v != "" {
		offset, err = strconv.ParseFloat(v, 64)
		if err != nil || offset < 0 {
			api.BadRequestResponse(w, r, errors.New("offset must be a non negative float"))
			return
		}
	}
	distance := DEFAULT_REACHABLE_DISTANCE
	if v := query.Get("distance"); v != "" {
		distance, err = strconv.ParseFloat(v, 64)
		if err != nil || distance <= 0 {
			api.BadRequestResponse(w, r, errors.New("distance must be a positive float"))
			return
		}
	}

	edges, err := api.horizonService.Reachable(r.Context(), datastructure.EdgeID(id), offset, distance)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewEdgesResponse(edges)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *horizonAPI) connectedEdges(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("node id must be a valid int"))
		return
	}

	edges, err := api.horizonService.ConnectedEdges(r.Context(), datastructure.NodeID(id))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewEdgesResponse(edges)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// match. loaded edges at lat,lon, or within radius meters of it.
func (api *horizonAPI) match(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()
	var (
		request matchRequest
		err     error
	)
	if request.Lat, err = strconv.ParseFloat(query.Get("lat"), 64); err != nil {
		api.BadRequestResponse(w, r, errors.New("lat must be a valid float"))
		return
	}
	if request.Lon, err = strconv.ParseFloat(query.Get("lon"), 64); err != nil {
		api.BadRequestResponse(w, r, errors.New("lon must be a valid float"))
		return
	}
	if v := query.Get("radius"); v != "" {
		if request.Radius, err = strconv.ParseFloat(v, 64); err != nil {
			api.BadRequestResponse(w, r, errors.New("radius must be a valid float"))
			return
		}
	}
	if err := validateStruct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	edges, err := api.horizonService.Match(r.Context(), request.Lat, request.Lon, request.Radius)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"data": NewEdgesResponse(edges)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
