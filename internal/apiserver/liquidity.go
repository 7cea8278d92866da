package apiserver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var depositAmountUSDOptions = []int{100, 500, 1000}

func (s *Service) liquidityFamily() *actionFamily {
	f := &actionFamily{
		svc:                    s,
		name:                   "liquidity",
		icon:                   s.cfg.LiquidityIconURL,
		defaultAmount:          fmt.Sprint(depositAmountUSDOptions[0]),
		unavailableTitle:       "Deposit collateral and provide liquidity into Cloned Asset pools",
		unavailableDescription: "LP Cloned Assets.",
		buildFailureLabel:      "Not Available",
		build:                  s.builder.LiquidityTransaction,
	}

	f.discovery = func(pool poolTicker) actionGetResponse {
		links := make([]linkedAction, 0, len(depositAmountUSDOptions)+1)
		for _, amount := range depositAmountUSDOptions {
			links = append(links, linkedAction{
				Label: formatUSD(float64(amount)),
				Href:  f.href(pool, fmt.Sprint(amount)),
			})
		}
		links = append(links, linkedAction{
			Label: "Deposit + LP",
			Href:  f.parameterHref(pool),
			Parameters: []actionParameter{{
				Name:  amountParameterName,
				Label: fmt.Sprintf("Custom %s amount", pool.Quote),
			}},
		})

		resp := liquidityLabels(f.icon, pool, 0)
		resp.Links = &actionLinks{Actions: links}
		return resp
	}

	f.amountMetadata = func(pool poolTicker, amount string) actionGetResponse {
		return liquidityLabels(f.icon, pool, parseDisplayAmount(amount))
	}

	return f
}

// liquidityLabels omits the dollar suffix when amount is zero.
func liquidityLabels(icon string, pool poolTicker, amount float64) actionGetResponse {
	label := fmt.Sprintf("LP into the %s pool", pool.Ticker)
	if amount > 0 {
		label += " with " + formatUSD(amount)
	}
	return actionGetResponse{
		Icon:  icon,
		Label: label,
		Title: fmt.Sprintf("Provide liquidity into %s pool", pool.Ticker),
		Description: fmt.Sprintf("Effortlessly provide liquidity to the %s pool with just one click! Deposit your %s collateral and open a position with ease!",
			pool.Ticker, pool.Quote),
	}
}

func parseDisplayAmount(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0
	}
	return value
}
