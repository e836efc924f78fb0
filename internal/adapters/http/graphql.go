package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"price_multiplier": &graphql.Field{Type: graphql.String},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"region_id": &graphql.Field{Type: graphql.String},
			"status":    &graphql.Field{Type: graphql.String},
		},
	})

	lineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Line",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"code":            &graphql.Field{Type: graphql.String},
			"fare_multiplier": &graphql.Field{Type: graphql.String},
			"stations":        &graphql.Field{Type: graphql.NewList(stationType)},
		},
	})

	segmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Segment",
		Fields: graphql.Fields{
			"line_id":     &graphql.Field{Type: graphql.String},
			"line_code":   &graphql.Field{Type: graphql.String},
			"from":        &graphql.Field{Type: stationType},
			"to":          &graphql.Field{Type: stationType},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"transfer":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"stations":          &graphql.Field{Type: graphql.NewList(stationType)},
			"segments":          &graphql.Field{Type: graphql.NewList(segmentType)},
			"total_distance_km": &graphql.Field{Type: graphql.Float},
		},
	})

	fareConfigType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FareConfiguration",
		Fields: graphql.Fields{
			"id":                       &graphql.Field{Type: graphql.String},
			"base_price_per_km":        &graphql.Field{Type: graphql.String},
			"minimum_fare":             &graphql.Field{Type: graphql.String},
			"maximum_fare":             &graphql.Field{Type: graphql.String},
			"peak_hour_multiplier":     &graphql.Field{Type: graphql.String},
			"off_peak_hour_multiplier": &graphql.Field{Type: graphql.String},
			"status":                   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"regions": &graphql.Field{
				Type:        graphql.NewList(regionType),
				Description: "List all pricing regions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.List(p.Context)
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "List all stations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.List(p.Context)
				},
			},
			"station": &graphql.Field{
				Type:        stationType,
				Description: "Get a station by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stations.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"lines": &graphql.Field{
				Type:        graphql.NewList(lineType),
				Description: "List all lines with their ordered stations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Lines.ListWithStations(p.Context)
				},
			},
			"line": &graphql.Field{
				Type:        lineType,
				Description: "Get a line by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Lines.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"topologyRoute": &graphql.Field{
				Type:        routeType,
				Description: "Shortest path between two stations, ignoring line membership",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routing.FindTopologyRoute(p.Context, p.Args["from"].(string), p.Args["to"].(string))
				},
			},
			"planRoute": &graphql.Field{
				Type:        routeType,
				Description: "Line-aware route with explicit transfers",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routing.FindLineAwareRoute(p.Context, p.Args["from"].(string), p.Args["to"].(string))
				},
			},
			"activeFareConfig": &graphql.Field{
				Type:        fareConfigType,
				Description: "The pricing configuration currently in force",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.FareConfigs.Active(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
