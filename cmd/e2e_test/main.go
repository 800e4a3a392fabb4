package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", nil, 200)

	// 2. Register an asset
	ticker := fmt.Sprintf("E2E%d", time.Now().Unix()%100000)
	assetID := createAsset(ticker)
	fmt.Printf("Created Asset ID: %d\n", assetID)

	// 3. Buy and partially sell it
	buyID := createTransaction(assetID, "BUY", "100", "10.00")
	createTransaction(assetID, "SELL", "40", "11.00")

	// 4. List assets and transactions
	checkEndpoint("GET", "/assets", nil, 200)
	checkEndpoint("GET", "/transactions", nil, 200)

	// 5. Portfolio has the remaining 60 units
	checkEndpoint("GET", "/portfolio", nil, 200)

	// 6. Refresh prices (the fake ticker lands in "failed")
	checkEndpoint("POST", "/prices/refresh", nil, 200)

	// 7. Edit then delete the buy
	checkEndpoint("PUT", fmt.Sprintf("/transactions/%d", buyID), map[string]interface{}{
		"asset_id": assetID, "date": time.Now().Format("2006-01-02"), "side": "BUY", "quantity": "120", "unit_price": "10.00",
	}, 200)
	checkEndpoint("DELETE", fmt.Sprintf("/transactions/%d", buyID), nil, 200)

	// 8. Portfolio no longer holds the asset (net quantity is negative and reported)
	checkEndpoint("GET", "/portfolio", nil, 200)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(method, path string, body interface{}, expectedStatus int) []byte {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return respBody
}

func createAsset(ticker string) int64 {
	fmt.Println("Creating asset...")
	reqBody := map[string]interface{}{
		"ticker":      ticker,
		"name":        "E2E test asset",
		"asset_class": "EQUITY",
	}
	body := postJSON("/assets", reqBody)
	var res struct {
		ID int64 `json:"id"`
	}
	json.Unmarshal(body, &res)
	return res.ID
}

func createTransaction(assetID int64, side, qty, price string) int64 {
	fmt.Printf("Recording %s...\n", side)
	reqBody := map[string]interface{}{
		"asset_id":   assetID,
		"date":       time.Now().Format("2006-01-02"),
		"side":       side,
		"quantity":   qty,
		"unit_price": price,
		"fees":       "0.50",
	}
	body := postJSON("/transactions", reqBody)
	var res struct {
		ID int64 `json:"id"`
	}
	json.Unmarshal(body, &res)
	return res.ID
}

func postJSON(path string, reqBody interface{}) []byte {
	jsonBody, _ := json.Marshal(reqBody)
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 201 {
		log.Fatalf("POST %s failed with status %d: %s", path, resp.StatusCode, string(body))
	}
	return body
}
