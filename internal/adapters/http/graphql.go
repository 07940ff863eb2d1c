package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/workradius/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	jobFields := func() graphql.Fields {
		return graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"title":           &graphql.Field{Type: graphql.String},
			"company":         &graphql.Field{Type: graphql.String},
			"description":     &graphql.Field{Type: graphql.String},
			"location_text":   &graphql.Field{Type: graphql.String},
			"employment_type": &graphql.Field{Type: graphql.String},
			"salary":          &graphql.Field{Type: graphql.String},
			"employer_id":     &graphql.Field{Type: graphql.String},
			"coordinate":      &graphql.Field{Type: coordinateType},
			"posted_at":       &graphql.Field{Type: graphql.String},
		}
	}

	jobType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Job",
		Fields: jobFields(),
	})

	rankedFields := jobFields()
	rankedFields["distance_km"] = &graphql.Field{Type: graphql.Float}
	rankedJobType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "RankedJob",
		Fields: rankedFields,
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"jobsNearby": &graphql.Field{
				Type:        graphql.NewList(rankedJobType),
				Description: "Recent postings within radius_km of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat, _ := p.Args["lat"].(float64)
					lon, _ := p.Args["lon"].(float64)
					var radius *float64
					if r, ok := p.Args["radius_km"].(float64); ok {
						radius = &r
					}
					q, err := newNearbyQuery(lat, lon, radius, deps.Suggestions.DefaultRadiusKm(), deps.MaxRadiusKm)
					if err != nil {
						return nil, err
					}

					ranked, err := deps.Suggestions.SuggestJobs(p.Context, q.Seeker, q.RadiusKm)
					if err != nil {
						return nil, graphqlError(err)
					}
					result := make([]map[string]interface{}, 0, len(ranked))
					for _, r := range ranked {
						m := jobToMap(r.JobPosting)
						m["distance_km"] = r.DistanceKm
						result = append(result, m)
					}
					return result, nil
				},
			},
			"job": &graphql.Field{
				Type:        jobType,
				Description: "Get a posting by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					job, err := deps.Jobs.GetByID(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, graphqlError(err)
					}
					return jobToMap(*job), nil
				},
			},
			"recentJobs": &graphql.Field{
				Type:        graphql.NewList(jobType),
				Description: "Newest postings first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultListLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit, _ := p.Args["limit"].(int)
					jobs, err := deps.Jobs.ListRecent(p.Context, limit)
					if err != nil {
						return nil, graphqlError(err)
					}
					result := make([]map[string]interface{}, 0, len(jobs))
					for _, j := range jobs {
						result = append(result, jobToMap(j))
					}
					return result, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func jobToMap(j domain.JobPosting) map[string]interface{} {
	m := map[string]interface{}{
		"id":              j.ID,
		"title":           j.Title,
		"company":         j.Company,
		"description":     j.Description,
		"location_text":   j.LocationText,
		"employment_type": j.EmploymentType,
		"salary":          j.Salary,
		"employer_id":     j.EmployerID,
		"posted_at":       j.PostedAt.UTC().Format(time.RFC3339),
	}
	if j.Coordinate != nil {
		m["coordinate"] = map[string]interface{}{
			"lat": j.Coordinate.Lat,
			"lon": j.Coordinate.Lon,
		}
	}
	return m
}

// graphqlError hides store details from GraphQL clients.
func graphqlError(err error) error {
	if errors.Is(err, domain.ErrCandidateFetch) {
		return errors.New("job store unavailable, retry later")
	}
	return errors.New("internal error")
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
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
