package apiserver

import "fmt"

var swapAmountUSDOptions = []int{10, 100, 1000}

func (s *Service) swapFamily() *actionFamily {
	f := &actionFamily{
		svc:                    s,
		name:                   "swap",
		icon:                   s.cfg.SwapIconURL,
		defaultAmount:          fmt.Sprint(swapAmountUSDOptions[0]),
		unavailableTitle:       "Buy Cloned Assets",
		unavailableDescription: "Buy Cloned Assets.",
		buildFailureLabel:      "Unable to create transaction",
		build:                  s.builder.SwapTransaction,
	}

	f.discovery = func(pool poolTicker) actionGetResponse {
		links := make([]linkedAction, 0, len(swapAmountUSDOptions)+1)
		for _, amount := range swapAmountUSDOptions {
			links = append(links, linkedAction{
				Label: formatUSD(float64(amount)),
				Href:  f.href(pool, fmt.Sprint(amount)),
			})
		}
		links = append(links, linkedAction{
			Label: "Buy " + pool.Asset,
			Href:  f.parameterHref(pool),
			Parameters: []actionParameter{{
				Name:  amountParameterName,
				Label: fmt.Sprintf("Enter a custom %s amount", pool.Quote),
			}},
		})

		return actionGetResponse{
			Icon:  f.icon,
			Label: "Buy " + pool.Asset,
			Title: "Buy " + pool.Asset,
			Description: fmt.Sprintf("Buy %s with %s. Choose a %s amount from the options below, or enter a custom amount.",
				pool.Asset, pool.Quote, pool.Quote),
			Links: &actionLinks{Actions: links},
		}
	}

	f.amountMetadata = func(pool poolTicker, _ string) actionGetResponse {
		return actionGetResponse{
			Icon:        f.icon,
			Label:       "Buy " + pool.Asset,
			Title:       fmt.Sprintf("Buy %s with %s", pool.Asset, pool.Quote),
			Description: fmt.Sprintf("Buy %s with %s.", pool.Asset, pool.Quote),
		}
	}

	return f
}
