package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
)

// jsonScalar passes arbitrary JSON values (feature properties) through.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(v interface{}) interface{} { return v },
	ParseValue:  func(v interface{}) interface{} { return v },
	ParseLiteral: func(v ast.Value) interface{} {
		return v.GetValue()
	},
})

func datasetArg(p graphql.ResolveParams) (domain.DatasetID, error) {
	s, _ := p.Args["dataset"].(string)
	return domain.ParseDatasetID(s)
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	datasetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dataset",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.String},
			"file":   &graphql.Field{Type: graphql.String},
			"cached": &graphql.Field{Type: graphql.Boolean},
		},
	})

	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyResult",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: graphql.String},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"properties":  &graphql.Field{Type: jsonScalar},
		},
	})

	classificationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Classification",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"matched":  &graphql.Field{Type: graphql.Boolean},
			"nearby":   &graphql.Field{Type: graphql.Boolean},
			"place":    &graphql.Field{Type: graphql.String},
		},
	})

	hitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchHit",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: graphql.String},
			"match":    &graphql.Field{Type: jsonScalar},
		},
	})

	datasetHitsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DatasetHits",
		Fields: graphql.Fields{
			"dataset": &graphql.Field{Type: graphql.String},
			"total":   &graphql.Field{Type: graphql.Int},
			"matches": &graphql.Field{Type: graphql.NewList(hitType)},
			"error":   &graphql.Field{Type: graphql.String},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DatasetStats",
		Fields: graphql.Fields{
			"dataset":        &graphql.Field{Type: graphql.String},
			"file":           &graphql.Field{Type: graphql.String},
			"total_features": &graphql.Field{Type: graphql.Int},
			"geometry_types": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"properties":     &graphql.Field{Type: jsonScalar},
			"sample":         &graphql.Field{Type: jsonScalar},
		},
	})

	replyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reply",
		Fields: graphql.Fields{
			"text":     &graphql.Field{Type: graphql.String},
			"route":    &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{Type: graphql.String},
			"nearby":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"datasets": &graphql.Field{
				Type:        graphql.NewList(datasetType),
				Description: "List the dataset bindings",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Datasets.List(), nil
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(nearbyType),
				Description: "Features of a dataset within radiusKm of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"dataset":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radiusKm": &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := datasetArg(p)
					if err != nil {
						return nil, err
					}
					radius, ok := p.Args["radiusKm"].(float64)
					if !ok {
						radius = domain.CategoryFor(id).DefaultRadiusKm()
					}
					return deps.Nearby.FindNearby(p.Context, p.Args["lat"].(float64), p.Args["lon"].(float64), radius, id)
				},
			},
			"classify": &graphql.Field{
				Type:        classificationType,
				Description: "Route a question to a category",
				Args: graphql.FieldConfigArgument{
					"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return usecases.Analyze(p.Args["text"].(string)), nil
				},
			},
			"search": &graphql.Field{
				Type:        graphql.NewList(datasetHitsType),
				Description: "Keyword search across every dataset",
				Args: graphql.FieldConfigArgument{
					"keyword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res, err := deps.Datasets.SearchAll(p.Context, p.Args["keyword"].(string))
					if err != nil {
						return nil, err
					}
					return flattenSearch(res), nil
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Geometry and property makeup of a dataset",
				Args: graphql.FieldConfigArgument{
					"dataset": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := datasetArg(p)
					if err != nil {
						return nil, err
					}
					return deps.Datasets.Stats(p.Context, id)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"clearCache": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Drop every cached dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					deps.Datasets.ClearCache(p.Context)
					return true, nil
				},
			},
			"ask": &graphql.Field{
				Type:        replyType,
				Description: "Send a message in an existing chat session",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"text":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Chat.Get(p.Args["session"].(string))
					if err != nil {
						return nil, err
					}
					return sess.Ask(p.Context, p.Args["text"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// flattenSearch turns the per-dataset maps into a list in dataset order.
func flattenSearch(res *domain.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(res.Results)+len(res.Errors))
	for _, id := range domain.Datasets {
		if hits, ok := res.Results[id]; ok {
			out = append(out, map[string]interface{}{
				"dataset": string(id),
				"total":   hits.Total,
				"matches": hits.Matches,
			})
		} else if msg, ok := res.Errors[id]; ok {
			out = append(out, map[string]interface{}{"dataset": string(id), "error": msg})
		}
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic(fmt.Sprintf("graphql schema build: %v", err))
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
