// Command mint-token signs a caller JWT and issues a RequestMint against a
// running coordinator. Operator tool; the token itself is minted later by
// the provisioning callback.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "coordinator base URL")
		secret  = flag.String("secret", "", "JWT signing secret")
		address = flag.String("address", "", "caller wallet address")
		salt    = flag.String("salt", "", "optional provisioning salt")
		issuer  = flag.String("issuer", "", "optional JWT issuer")
	)
	flag.Parse()

	if *secret == "" || *address == "" {
		log.Fatal("both -secret and -address are required")
	}

	claims := jwt.MapClaims{
		"address": *address,
		"exp":     time.Now().Add(10 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}
	if *issuer != "" {
		claims["iss"] = *issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*secret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"salt": *salt})
	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/v1/execute/mint", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 30 * time.Second}).Do(req)
	if err != nil {
		log.Fatalf("request mint: %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%d %s\n", resp.StatusCode, out)
}
