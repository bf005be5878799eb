package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/carbonlab/perfbench/internal/config"
	"github.com/carbonlab/perfbench/internal/scenario"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:             "http://localhost:3000",
		Timeout:             10 * time.Second,
		LoadTimeout:         15 * time.Second,
		PredictionRequests:  100,
		TradingOrders:       50,
		LoadUsers:           20,
		LoadRequestsPerUser: 10,
	}
}

func TestEndpointsScenarioProbes(t *testing.T) {
	sc := endpointsScenario(testConfig())
	if len(sc.Probes) != 3 {
		t.Fatalf("want 3 probes, got %d", len(sc.Probes))
	}
	paths := []string{"/health", "/api/market-data", "/api/carbon-credits"}
	for i, p := range sc.Probes {
		if p.Path != paths[i] {
			t.Errorf("probe[%d].Path = %q, want %q", i, p.Path, paths[i])
		}
		if p.Method != "GET" || p.ExpectStatus != 200 {
			t.Errorf("probe[%d] = %+v", i, p)
		}
	}
	if sc.Probes[0].ValidateBody == nil {
		t.Error("health probe should validate the status field")
	}
	if err := sc.Probes[0].ValidateBody([]byte(`{"status":"ok"}`)); err != nil {
		t.Errorf("valid health body rejected: %v", err)
	}
	if err := sc.Probes[0].ValidateBody([]byte(`{}`)); err == nil {
		t.Error("health body without status accepted")
	}
}

func TestPredictionScenarioPayload(t *testing.T) {
	sc := predictionScenario(testConfig())
	if sc.Requests != 100 {
		t.Fatalf("requests = %d, want 100", sc.Requests)
	}

	req := sc.Factory(0, 0)
	if req.Method != "POST" || req.Path != "/api/predictions" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Timeout != 10*time.Second {
		t.Errorf("timeout = %s, want 10s", req.Timeout)
	}

	body := string(req.Body)
	checks := map[string]string{
		"energyUsage":                "800",
		"transportation.weeklyMiles": "100",
		"transportation.vehicleType": "gasoline",
		"diet":                       "mixed",
		"householdSize":              "3",
		"wasteGeneration":            "20",
		"heatingType":                "gas",
	}
	for path, want := range checks {
		if got := gjson.Get(body, path).String(); got != want {
			t.Errorf("payload %s = %q, want %q", path, got, want)
		}
	}

	// The payload is fixed regardless of position.
	other := sc.Factory(0, 57)
	if string(other.Body) != body {
		t.Error("prediction payload should not vary by sequence")
	}
}

func TestTradingScenarioVariesByIndex(t *testing.T) {
	sc := tradingScenario(testConfig())
	if sc.Requests != 50 {
		t.Fatalf("requests = %d, want 50", sc.Requests)
	}

	tests := []struct {
		seq       int
		orderType string
		quantity  int64
		price     float64
	}{
		{seq: 0, orderType: "buy", quantity: 10, price: 20},
		{seq: 1, orderType: "sell", quantity: 11, price: 21},
		{seq: 23, orderType: "sell", quantity: 13, price: 23},
		{seq: 30, orderType: "buy", quantity: 20, price: 20},
	}
	for _, tt := range tests {
		req := sc.Factory(0, tt.seq)
		body := string(req.Body)
		if got := gjson.Get(body, "orderType").String(); got != tt.orderType {
			t.Errorf("seq %d orderType = %q, want %q", tt.seq, got, tt.orderType)
		}
		if got := gjson.Get(body, "quantity").Int(); got != tt.quantity {
			t.Errorf("seq %d quantity = %d, want %d", tt.seq, got, tt.quantity)
		}
		if got := gjson.Get(body, "price").Float(); got != tt.price {
			t.Errorf("seq %d price = %v, want %v", tt.seq, got, tt.price)
		}
		if got := gjson.Get(body, "creditId").String(); got != "test-credit-id" {
			t.Errorf("seq %d creditId = %q", tt.seq, got)
		}
	}
}

func TestLoadScenarioRotation(t *testing.T) {
	sc := loadScenario(testConfig())
	if sc.Users != 20 || sc.PerUser != 10 {
		t.Fatalf("sizing = %d x %d, want 20 x 10", sc.Users, sc.PerUser)
	}

	pred := sc.Factory(3, 0)
	if pred.Path != "/api/predictions" {
		t.Fatalf("seq 0 path = %q", pred.Path)
	}
	if got := gjson.GetBytes(pred.Body, "energyUsage").Int(); got != 730 {
		t.Errorf("lane 3 energyUsage = %d, want 730", got)
	}
	if got := gjson.GetBytes(pred.Body, "transportation.weeklyMiles").Int(); got != 95 {
		t.Errorf("lane 3 weeklyMiles = %d, want 95", got)
	}
	if got := gjson.GetBytes(pred.Body, "householdSize").Int(); got != 2 {
		t.Errorf("lane 3 householdSize = %d, want 2", got)
	}
	if pred.Timeout != 15*time.Second {
		t.Errorf("load timeout = %s, want 15s", pred.Timeout)
	}

	market := sc.Factory(3, 1)
	if market.Method != "GET" || market.Path != "/api/market-data" {
		t.Fatalf("seq 1 request = %+v", market)
	}

	order := sc.Factory(3, 2)
	if order.Path != "/api/orders" {
		t.Fatalf("seq 2 path = %q", order.Path)
	}
	if got := gjson.GetBytes(order.Body, "creditId").String(); got != "credit-3" {
		t.Errorf("lane 3 creditId = %q, want credit-3", got)
	}
	if got := gjson.GetBytes(order.Body, "orderType").String(); got != "sell" {
		t.Errorf("lane 3 orderType = %q, want sell", got)
	}
	if got := gjson.GetBytes(order.Body, "quantity").Int(); got != 8 {
		t.Errorf("lane 3 quantity = %d, want 8", got)
	}

	// The rotation repeats every three requests.
	if again := sc.Factory(3, 3); again.Path != "/api/predictions" {
		t.Errorf("seq 3 path = %q, want /api/predictions", again.Path)
	}
}

func TestBuildScenariosAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	data := []byte(`
prediction:
  requests: 5
  payload:
    energyUsage: 1200
trading:
  orders: 7
load:
  users: 4
  requests_per_user: 2
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	overrides, err := scenario.LoadOverrides(path)
	if err != nil {
		t.Fatal(err)
	}

	suite, err := buildScenarios(testConfig(), overrides)
	if err != nil {
		t.Fatal(err)
	}

	pred := suite[config.ScenarioPrediction]
	if pred.Requests != 5 {
		t.Errorf("prediction requests = %d, want 5", pred.Requests)
	}
	if got := gjson.GetBytes(pred.Factory(0, 0).Body, "energyUsage").Int(); got != 1200 {
		t.Errorf("overridden energyUsage = %d, want 1200", got)
	}
	if suite[config.ScenarioTrading].Requests != 7 {
		t.Errorf("trading orders = %d, want 7", suite[config.ScenarioTrading].Requests)
	}
	load := suite[config.ScenarioLoad]
	if load.Users != 4 || load.PerUser != 2 {
		t.Errorf("load sizing = %d x %d, want 4 x 2", load.Users, load.PerUser)
	}
}

func TestBuildScenariosWithoutOverrides(t *testing.T) {
	suite, err := buildScenarios(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range config.KnownScenarios() {
		if _, ok := suite[name]; !ok {
			t.Errorf("scenario %q missing from suite", name)
		}
	}
}
