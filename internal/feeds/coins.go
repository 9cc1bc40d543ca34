package feeds

import (
	"context"
	"errors"
	"strings"

	"swapstats/internal/domain"

	"gitlab.com/nevasik7/alerting/logger"
)

const feedCoinConfig = "coin_config"

// coins_config.json entry, only the keys we read
type coinConfigDoc struct {
	Coin        string `json:"coin"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	FName       string `json:"fname"`
	IsTestnet   bool   `json:"is_testnet"`
	WalletOnly  bool   `json:"wallet_only"`
	CoingeckoID string `json:"coingecko_id"`
	Decimals    int    `json:"decimals"`
	Protocol    struct {
		Type         string `json:"type"`
		ProtocolData struct {
			Platform        string `json:"platform"`
			ContractAddress string `json:"contract_address"`
		} `json:"protocol_data"`
	} `json:"protocol"`
}

type CoinConfigClient struct {
	f   fetcher
	url string
}

func NewCoinConfigClient(log logger.Logger, url string, opts Options) (*CoinConfigClient, error) {
	if url == "" {
		return nil, errors.New("coin config url is required")
	}
	return &CoinConfigClient{f: opts.fetcher(log), url: url}, nil
}

// Fetch returns the full variant -> config snapshot
func (c *CoinConfigClient) Fetch(ctx context.Context) (domain.CoinConfigs, error) {
	var doc map[string]coinConfigDoc
	if err := c.f.getJSON(ctx, feedCoinConfig, c.url, &doc); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, schemaErr(feedCoinConfig, errors.New("empty coin config document"))
	}

	out := make(domain.CoinConfigs, len(doc))
	for key, d := range doc {
		coin := d.Coin
		if coin == "" {
			coin = key
		}
		name := d.FName
		if name == "" {
			name = d.Name
		}

		out[coin] = domain.CoinConfig{
			Coin:            coin,
			Ticker:          domain.StripPlatform(coin),
			Platform:        platformOf(coin, d),
			Name:            name,
			Type:            d.Type,
			IsTestnet:       d.IsTestnet,
			WalletOnly:      d.WalletOnly,
			CoingeckoID:     strings.TrimSpace(d.CoingeckoID),
			ContractAddress: d.Protocol.ProtocolData.ContractAddress,
			Decimals:        d.Decimals,
		}
	}
	return out, nil
}

// suffix of the variant wins over the protocol platform
func platformOf(coin string, d coinConfigDoc) string {
	if p := domain.Platform(coin); p != "" {
		return p
	}
	return d.Protocol.ProtocolData.Platform
}
