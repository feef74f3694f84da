package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"olx-scraper/models"
	"olx-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes prices, posting dates and locations of a batch.
func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByLocation: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var prices []float64
	var dated []*models.Listing

	for _, l := range listings {
		if l.Price != nil {
			prices = append(prices, *l.Price)
			if report.Cheapest == nil || *l.Price < *report.Cheapest.Price {
				report.Cheapest = l
			}
			if report.MostExpensive == nil || *l.Price > *report.MostExpensive.Price {
				report.MostExpensive = l
			}
		}
		if l.DateParsed != nil {
			dated = append(dated, l)
		}
		if l.Location != "" && l.Location != models.LocationMissing {
			report.ListingsByLocation[l.Location]++
		}
	}

	report.PricedListings = len(prices)
	report.DatedListings = len(dated)

	if len(prices) > 0 {
		sort.Float64s(prices)
		var total float64
		for _, p := range prices {
			total += p
		}
		report.AveragePrice = round2(total / float64(len(prices)))
		report.MinPrice = round2(prices[0])
		report.MaxPrice = round2(prices[len(prices)-1])
		report.MedianPrice = round2(median(prices))
	}

	// Five most recent by posting date; ties keep page order.
	sort.SliceStable(dated, func(i, j int) bool {
		return *dated[i].DateParsed > *dated[j].DateParsed
	})
	if len(dated) > 5 {
		dated = dated[:5]
	}
	report.Newest = dated

	s.logger.Debug("[insights] %d listings, %d priced, %d dated",
		report.TotalListings, report.PricedListings, report.DatedListings)
	return report
}

// Print writes the report as a colored terminal summary.
func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 OLX SCRAPE SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings returned : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With price        : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintf(w, "  With parsed date  : \033[1m%d\033[0m\n", r.DatedListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", formatBRL(r.AveragePrice))
		fmt.Fprintf(w, "  Median price  : \033[1;32m%s\033[0m\n", formatBRL(r.MedianPrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", formatBRL(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", formatBRL(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.Cheapest != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Cheapest.Title, 50))
		fmt.Fprintf(w, "  Location : %s\n", r.Cheapest.Location)
		fmt.Fprintf(w, "  Price    : \033[1;32m%s\033[0m\n", r.Cheapest.PriceText)
		fmt.Fprintf(w, "  Link     : %s\n", r.Cheapest.Link)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Most Recent Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Newest) == 0 {
		fmt.Fprintf(w, "  No dated listings found\n")
	} else {
		for i, l := range r.Newest {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;36m%s\033[0m\n",
				i+1, truncate(l.Title, 38), *l.DateParsed)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Location\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByLocation) == 0 {
		fmt.Fprintf(w, "  No location data\n")
	} else {
		type locCount struct {
			loc   string
			count int
		}
		var locs []locCount
		for loc, cnt := range r.ListingsByLocation {
			locs = append(locs, locCount{loc, cnt})
		}
		sort.Slice(locs, func(i, j int) bool {
			if locs[i].count != locs[j].count {
				return locs[i].count > locs[j].count
			}
			return locs[i].loc < locs[j].loc
		})
		for _, lc := range locs {
			bar := strings.Repeat("█", lc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(lc.loc, 28), bar, lc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// formatBRL renders 1234.5 as "R$ 1.234,50".
func formatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, dec, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "R$ " + b.String() + "," + dec
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
