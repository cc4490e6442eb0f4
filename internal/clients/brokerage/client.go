// Package brokerage implements the holdings feed against a KIS-style
// brokerage REST API. The API speaks in string-encoded numbers and terse
// field codes; everything is decoded into fixed payload structs here and
// converted to the typed holdings shape before any other package sees it.
package brokerage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
)

// BrokerageName is the identity-key brokerage for all holdings from this feed.
const BrokerageName = "Korea Investment"

// fallbackUSDRate is used when the overseas balance payload carries no
// exchange rate. Matches the feed's own default.
const fallbackUSDRate = 1200.0

// Tokens are valid for 24h; reissue after 23 to stay clear of the edge.
const tokenLifetime = 23 * time.Hour

// Config holds brokerage API credentials and account identity.
type Config struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	AccountNo   string
	AccountCode string
}

// Client fetches account balances. Implements domain.HoldingsFeed.
type Client struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger

	mu            sync.Mutex
	token         string
	tokenIssuedAt time.Time
}

// NewClient creates a new brokerage client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.With().Str("client", "brokerage").Logger(),
	}
}

// Name identifies the feed in logs.
func (c *Client) Name() string {
	return "kis"
}

// Fetch refreshes domestic and overseas balances. A failure of one balance
// call degrades to a partial batch; only a total failure returns an error.
func (c *Client) Fetch() (domain.HoldingsBatch, error) {
	batch := domain.HoldingsBatch{
		Brokerage: BrokerageName,
		FXRates:   map[string]float64{"USD": fallbackUSDRate},
	}

	token, err := c.accessToken()
	if err != nil {
		return batch, &domain.ExternalFetchError{Source: "kis:auth", Err: err}
	}

	var fetchErrs []error

	domestic, err := c.fetchDomestic(token)
	if err != nil {
		c.log.Warn().Err(err).Msg("Domestic balance fetch failed")
		fetchErrs = append(fetchErrs, err)
	} else {
		batch.Holdings = append(batch.Holdings, domestic...)
	}

	overseas, usdRate, err := c.fetchOverseas(token)
	if err != nil {
		c.log.Warn().Err(err).Msg("Overseas balance fetch failed")
		fetchErrs = append(fetchErrs, err)
	} else {
		batch.Holdings = append(batch.Holdings, overseas...)
		batch.FXRates["USD"] = usdRate
	}

	if len(fetchErrs) == 2 {
		return batch, &domain.ExternalFetchError{
			Source: "kis:balance",
			Err:    fmt.Errorf("domestic: %v; overseas: %v", fetchErrs[0], fetchErrs[1]),
		}
	}

	c.log.Info().
		Int("holdings", len(batch.Holdings)).
		Float64("usd_rate", batch.FXRates["USD"]).
		Msg("Holdings fetched")
	return batch, nil
}

// numeric is a float64 that tolerates the API's string encoding ("1333.20"),
// plain numbers, and empty strings.
type numeric float64

func (n *numeric) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == `""` || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return fmt.Errorf("invalid numeric field %q: %w", s, err)
		}
		*n = numeric(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = numeric(f)
	return nil
}

// Domestic balance payload (TTTC8434R).
type domesticBalanceResponse struct {
	RtCd    string `json:"rt_cd"`
	Msg     string `json:"msg1"`
	Output1 []struct {
		Pdno        string  `json:"pdno"`
		PrdtName    string  `json:"prdt_name"`
		HldgQty     numeric `json:"hldg_qty"`
		Prpr        numeric `json:"prpr"`
		PchsAvgPric numeric `json:"pchs_avg_pric"`
		EvluAmt     numeric `json:"evlu_amt"`
		EvluPflsAmt numeric `json:"evlu_pfls_amt"`
	} `json:"output1"`
	Output2 []struct {
		CmaEvluAmt numeric `json:"cma_evlu_amt"`
	} `json:"output2"`
}

// Overseas present-balance payload (CTRP6504R).
type overseasBalanceResponse struct {
	RtCd    string `json:"rt_cd"`
	Msg     string `json:"msg1"`
	Output1 []struct {
		Pdno            string  `json:"pdno"`
		PrdtName        string  `json:"prdt_name"`
		CcldQtySmtl1    numeric `json:"ccld_qty_smtl1"`
		OvrsNowPric1    numeric `json:"ovrs_now_pric1"`
		AvgUnpr3        numeric `json:"avg_unpr3"`
		OvrsRlztPflsAmt numeric `json:"ovrs_rlzt_pfls_amt2"`
	} `json:"output1"`
	Output2 []struct {
		CrcyCd       string  `json:"crcy_cd"`
		FrstBltnExrt numeric `json:"frst_bltn_exrt"`
	} `json:"output2"`
}

func (c *Client) fetchDomestic(token string) ([]domain.Holding, error) {
	params := map[string]string{
		"CANO":                  c.cfg.AccountNo,
		"ACNT_PRDT_CD":          c.cfg.AccountCode,
		"AFHR_FLPR_YN":          "N",
		"OFL_YN":                "",
		"INQR_DVSN":             "02",
		"UNPR_DVSN":             "01",
		"FUND_STTL_ICLD_YN":     "N",
		"FNCG_AMT_AUTO_RDPT_YN": "N",
		"PRCS_DVSN":             "01",
		"CTX_AREA_FK100":        "",
		"CTX_AREA_NK100":        "",
	}

	var res domesticBalanceResponse
	err := c.get(token, "/uapi/domestic-stock/v1/trading/inquire-balance", "TTTC8434R", params, &res)
	if err != nil {
		return nil, err
	}
	if res.RtCd != "0" {
		return nil, fmt.Errorf("domestic balance returned rt_cd %s: %s", res.RtCd, res.Msg)
	}

	var holdings []domain.Holding
	for _, item := range res.Output1 {
		if item.HldgQty <= 0 {
			continue
		}
		holdings = append(holdings, domain.Holding{
			Symbol:        item.Pdno,
			Name:          nameOr(item.PrdtName, item.Pdno),
			AssetClass:    domain.AssetDomesticEquity,
			Quantity:      float64(item.HldgQty),
			CurrentPrice:  float64(item.Prpr),
			AvgCost:       float64(item.PchsAvgPric),
			Currency:      "KRW",
			Exchange:      "KRX",
			EvalAmountKRW: float64(item.EvluAmt),
			PnLKRW:        float64(item.EvluPflsAmt),
		})
	}

	// The account summary carries the CMA/RP balance as a cash-like row.
	for _, s := range res.Output2 {
		if s.CmaEvluAmt > 0 {
			rp := float64(s.CmaEvluAmt)
			holdings = append(holdings, domain.Holding{
				Symbol:        "RP_MMW",
				Name:          "RP/어음",
				AssetClass:    domain.AssetCashKRW,
				Quantity:      1,
				CurrentPrice:  rp,
				AvgCost:       rp,
				Currency:      "KRW",
				EvalAmountKRW: rp,
			})
		}
	}

	return holdings, nil
}

func (c *Client) fetchOverseas(token string) ([]domain.Holding, float64, error) {
	params := map[string]string{
		"CANO":              c.cfg.AccountNo,
		"ACNT_PRDT_CD":      c.cfg.AccountCode,
		"WCRC_FRCR_DVSN_CD": "02",
		"NATN_CD":           "000",
		"TR_MKET_CD":        "00",
		"INQR_DVSN_CD":      "00",
	}

	var res overseasBalanceResponse
	err := c.get(token, "/uapi/overseas-stock/v1/trading/inquire-present-balance", "CTRP6504R", params, &res)
	if err != nil {
		return nil, 0, err
	}
	if res.RtCd != "0" {
		return nil, 0, fmt.Errorf("overseas balance returned rt_cd %s: %s", res.RtCd, res.Msg)
	}

	usdRate := fallbackUSDRate
	for _, curr := range res.Output2 {
		if curr.CrcyCd == "USD" && curr.FrstBltnExrt > 0 {
			usdRate = float64(curr.FrstBltnExrt)
			break
		}
	}

	var holdings []domain.Holding
	for _, item := range res.Output1 {
		if item.CcldQtySmtl1 <= 0 {
			continue
		}
		holdings = append(holdings, domain.Holding{
			Symbol:       item.Pdno,
			Name:         nameOr(item.PrdtName, item.Pdno),
			AssetClass:   domain.AssetOverseasEquity,
			Quantity:     float64(item.CcldQtySmtl1),
			CurrentPrice: float64(item.OvrsNowPric1),
			AvgCost:      float64(item.AvgUnpr3),
			Currency:     "USD",
			Exchange:     "NASD",
			PnLKRW:       float64(item.OvrsRlztPflsAmt),
		})
	}

	return holdings, usdRate, nil
}

// accessToken returns a cached token, reissuing when it nears expiry.
func (c *Client) accessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Since(c.tokenIssuedAt) < tokenLifetime {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.client.Post(c.cfg.BaseURL+"/oauth2/tokenP", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = result.AccessToken
	c.tokenIssuedAt = time.Now()
	c.log.Info().Msg("Access token issued")
	return c.token, nil
}

func (c *Client) get(token, path, trID string, params map[string]string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
