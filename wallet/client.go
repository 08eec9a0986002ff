package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fedi-tools/gomint/ecash"
)

func putPegIn(ctx context.Context, client *http.Client, mintURL string,
	pegInRequest ecash.PegInRequest) error {

	requestBody, err := json.Marshal(pegInRequest)
	if err != nil {
		return fmt.Errorf("json.Marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		mintURL+"/issuance/pegin", bytes.NewBuffer(requestBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = parse(resp)
	return err
}

func getIssuance(ctx context.Context, client *http.Client, mintURL string,
	id ecash.TransactionId) (*ecash.SigResponse, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		mintURL+"/issuance/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if _, err := parse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sigResponse ecash.SigResponse
	if err := json.Unmarshal(body, &sigResponse); err != nil {
		return nil, fmt.Errorf("error reading response from mint: %v", err)
	}

	return &sigResponse, nil
}

func parse(response *http.Response) (*http.Response, error) {
	if response.StatusCode == 400 {
		var errResponse MintError
		err := json.NewDecoder(response.Body).Decode(&errResponse)
		if err != nil {
			return nil, fmt.Errorf("could not decode error response from mint: %v", err)
		}
		return nil, errResponse
	}

	if response.StatusCode != 200 {
		body, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s", body)
	}

	return response, nil
}
