package main

import (
	"encoding/json"
	"fmt"

	"github.com/carbonlab/perfbench/internal/bench"
	"github.com/carbonlab/perfbench/internal/config"
	"github.com/carbonlab/perfbench/internal/scenario"
)

// predictionPayload is the household profile posted to the prediction
// endpoint during the sequential scenario.
type predictionPayload struct {
	EnergyUsage     int               `json:"energyUsage"`
	Transportation  transportationDoc `json:"transportation"`
	Diet            string            `json:"diet"`
	HouseholdSize   int               `json:"householdSize"`
	WasteGeneration int               `json:"wasteGeneration"`
	HeatingType     string            `json:"heatingType"`
}

type transportationDoc struct {
	WeeklyMiles int    `json:"weeklyMiles"`
	VehicleType string `json:"vehicleType"`
}

type orderPayload struct {
	OrderType string  `json:"orderType"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	CreditID  string  `json:"creditId"`
}

func defaultPredictionBody() []byte {
	body, _ := json.Marshal(predictionPayload{
		EnergyUsage: 800,
		Transportation: transportationDoc{
			WeeklyMiles: 100,
			VehicleType: "gasoline",
		},
		Diet:            "mixed",
		HouseholdSize:   3,
		WasteGeneration: 20,
		HeatingType:     "gas",
	})
	return body
}

func orderBody(orderType string, quantity int, price float64, creditID string) []byte {
	body, _ := json.Marshal(orderPayload{
		OrderType: orderType,
		Quantity:  quantity,
		Price:     price,
		CreditID:  creditID,
	})
	return body
}

// buildScenarios assembles the suite from config and optional overrides,
// keyed by scenario name.
func buildScenarios(cfg *config.Config, overrides *scenario.Overrides) (map[string]scenario.Scenario, error) {
	suite := map[string]scenario.Scenario{
		config.ScenarioEndpoints:  endpointsScenario(cfg),
		config.ScenarioPrediction: predictionScenario(cfg),
		config.ScenarioTrading:    tradingScenario(cfg),
		config.ScenarioLoad:       loadScenario(cfg),
	}
	if overrides == nil {
		return suite, nil
	}

	if o := overrides.Prediction; o != nil {
		sc := suite[config.ScenarioPrediction]
		if o.Requests > 0 {
			sc.Requests = o.Requests
		}
		body, err := overrides.PredictionBody()
		if err != nil {
			return nil, err
		}
		if body != nil {
			timeout := cfg.Timeout
			sc.Factory = func(_, _ int) bench.Request {
				return bench.Request{
					Method:  "POST",
					Path:    "/api/predictions",
					Body:    body,
					Timeout: timeout,
				}
			}
		}
		suite[config.ScenarioPrediction] = sc
	}
	if o := overrides.Trading; o != nil && o.Orders > 0 {
		sc := suite[config.ScenarioTrading]
		sc.Requests = o.Orders
		suite[config.ScenarioTrading] = sc
	}
	if o := overrides.Load; o != nil {
		sc := suite[config.ScenarioLoad]
		if o.Users > 0 {
			sc.Users = o.Users
		}
		if o.RequestsPerUser > 0 {
			sc.PerUser = o.RequestsPerUser
		}
		suite[config.ScenarioLoad] = sc
	}
	return suite, nil
}

func endpointsScenario(cfg *config.Config) scenario.Scenario {
	timeout := cfg.Timeout
	return scenario.Scenario{
		Name: config.ScenarioEndpoints,
		Mode: scenario.ModeSequential,
		Probes: []scenario.EndpointProbe{
			{
				Method:       "GET",
				Path:         "/health",
				ExpectStatus: 200,
				Timeout:      timeout,
				ValidateBody: scenario.JSONFieldPresent("status"),
			},
			{
				Method:       "GET",
				Path:         "/api/market-data",
				ExpectStatus: 200,
				Timeout:      timeout,
			},
			{
				Method:       "GET",
				Path:         "/api/carbon-credits",
				ExpectStatus: 200,
				Timeout:      timeout,
			},
		},
	}
}

func predictionScenario(cfg *config.Config) scenario.Scenario {
	body := defaultPredictionBody()
	timeout := cfg.Timeout
	return scenario.Scenario{
		Name:     config.ScenarioPrediction,
		Mode:     scenario.ModeSequential,
		Requests: cfg.PredictionRequests,
		Factory: func(_, _ int) bench.Request {
			return bench.Request{
				Method:  "POST",
				Path:    "/api/predictions",
				Body:    body,
				Timeout: timeout,
			}
		},
	}
}

func tradingScenario(cfg *config.Config) scenario.Scenario {
	timeout := cfg.Timeout
	return scenario.Scenario{
		Name:     config.ScenarioTrading,
		Mode:     scenario.ModeSequential,
		Requests: cfg.TradingOrders,
		Factory: func(_, seq int) bench.Request {
			orderType := "buy"
			if seq%2 == 1 {
				orderType = "sell"
			}
			return bench.Request{
				Method:  "POST",
				Path:    "/api/orders",
				Body:    orderBody(orderType, 10+(seq%20), float64(20+(seq%10)), "test-credit-id"),
				Timeout: timeout,
			}
		},
	}
}

// loadScenario drives a mixed workload: each lane rotates between a
// prediction, a market-data read and an order, with payloads varied per
// lane so caches downstream see distinct values.
func loadScenario(cfg *config.Config) scenario.Scenario {
	timeout := cfg.LoadTimeout
	return scenario.Scenario{
		Name:    config.ScenarioLoad,
		Mode:    scenario.ModeConcurrent,
		Users:   cfg.LoadUsers,
		PerUser: cfg.LoadRequestsPerUser,
		Factory: func(lane, seq int) bench.Request {
			switch seq % 3 {
			case 0:
				body, _ := json.Marshal(predictionPayload{
					EnergyUsage: 700 + lane*10,
					Transportation: transportationDoc{
						WeeklyMiles: 80 + lane*5,
						VehicleType: "gasoline",
					},
					Diet:            "mixed",
					HouseholdSize:   2 + lane%3,
					WasteGeneration: 20,
					HeatingType:     "gas",
				})
				return bench.Request{
					Method:  "POST",
					Path:    "/api/predictions",
					Body:    body,
					Timeout: timeout,
				}
			case 1:
				return bench.Request{
					Method:  "GET",
					Path:    "/api/market-data",
					Timeout: timeout,
				}
			default:
				orderType := "buy"
				if lane%2 == 1 {
					orderType = "sell"
				}
				return bench.Request{
					Method:  "POST",
					Path:    "/api/orders",
					Body:    orderBody(orderType, 5+(lane%10), float64(25+(lane%5)), fmt.Sprintf("credit-%d", lane)),
					Timeout: timeout,
				}
			}
		},
	}
}
