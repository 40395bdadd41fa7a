package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rewired-gh/pricewise/internal/analysis"
	"github.com/rewired-gh/pricewise/internal/models"
)

// printReport writes a plain-text recommendation report
func printReport(w io.Writer, rec *models.Recommendation) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "PRICE COMPARISON: %s\n", rec.Query)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	if rec.BestOffer == nil {
		fmt.Fprintf(w, "\n%s\n%s\n", rec.Insights.Summary, rec.Insights.DetailedAnalysis)
		return
	}

	printBestDeal(w, rec)
	printComparison(w, rec.AllOffers, rec.BestOffer)
	if rec.Analysis != nil {
		printAnalysis(w, rec.Analysis)
	}
	if rec.Prediction != nil {
		printPrediction(w, rec.Prediction)
	}
	printInsights(w, rec.Insights)
}

func printBestDeal(w io.Writer, rec *models.Recommendation) {
	best := rec.BestOffer
	fmt.Fprintln(w, "\nBEST DEAL")
	fmt.Fprintf(w, "  %s\n", best.Name)
	fmt.Fprintf(w, "  Platform: %s\n", strings.ToUpper(best.Platform))
	fmt.Fprintf(w, "  Price:    ₹%.2f", best.Price)
	if best.OriginalPrice != nil && *best.OriginalPrice > best.Price {
		fmt.Fprintf(w, " (was ₹%.2f, %.1f%% off)", *best.OriginalPrice, best.DiscountPercent)
	}
	fmt.Fprintln(w)
	if rec.Savings.Amount > 0 {
		fmt.Fprintf(w, "  You save: ₹%.2f (%.1f%%) vs ₹%.2f\n", rec.Savings.Amount, rec.Savings.Percentage, rec.Savings.VsHighest)
	}
}

func printComparison(w io.Writer, offers []models.Offer, best *models.Offer) {
	summaries := analysis.ComparePlatforms(offers)
	platforms := make([]string, 0, len(summaries))
	for p := range summaries {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool {
		return summaries[platforms[i]].Price < summaries[platforms[j]].Price
	})

	fmt.Fprintln(w, "\nPLATFORMS")
	fmt.Fprintf(w, "  %-12s %12s %9s %7s %7s  %s\n", "Platform", "Price", "Discount", "Rating", "Trust", "Stock")
	for _, p := range platforms {
		s := summaries[p]
		stock := "in stock"
		if !s.InStock {
			stock = "out of stock"
		}
		marker := ""
		if p == best.Platform {
			marker = " *"
		}
		fmt.Fprintf(w, "  %-12s %12s %8.1f%% %7.1f %7.1f  %s%s\n",
			p, fmt.Sprintf("₹%.2f", s.Price), s.DiscountPercent, s.Rating, s.SellerTrust, stock, marker)
	}
}

func printAnalysis(w io.Writer, a *models.PriceAnalysis) {
	fmt.Fprintf(w, "\nPRICE HISTORY (%d days)\n", a.DaysAnalyzed)
	fmt.Fprintf(w, "  Current ₹%.2f | Min ₹%.2f | Avg ₹%.2f | Median ₹%.2f | Max ₹%.2f\n",
		a.CurrentPrice, a.MinPrice, a.AvgPrice, a.MedianPrice, a.MaxPrice)
	fmt.Fprintf(w, "  Trend: %s | Volatility: ₹%.2f | Position: %s\n", a.Trend, a.Volatility, a.Position())
}

func printPrediction(w io.Writer, p *models.PricePrediction) {
	fmt.Fprintln(w, "\nFORECAST")
	fmt.Fprintf(w, "  Predicted: ₹%.2f (confidence %.0f%%, %s)\n", p.PredictedPrice, p.Confidence, p.Method)
	if p.ExpectedPriceDrop > 0 {
		fmt.Fprintf(w, "  Expected drop: ₹%.2f\n", p.ExpectedPriceDrop)
	}
	if p.UpcomingSale != nil {
		fmt.Fprintf(w, "  Next sale: %s in %d days\n", p.UpcomingSale.Name, p.UpcomingSale.DaysUntil)
	}
	if p.OptimalBuyDate != nil {
		fmt.Fprintf(w, "  Best day to buy: %s\n", p.OptimalBuyDate.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "  >> %s\n", p.Recommendation)
	if p.ShouldBuyNow() {
		fmt.Fprintln(w, "  Verdict:  buy now, waiting is unlikely to pay off")
	} else {
		fmt.Fprintln(w, "  Verdict:  waiting may pay off")
	}
}

func printInsights(w io.Writer, in models.Insights) {
	fmt.Fprintln(w, "\nINSIGHTS")
	fmt.Fprintf(w, "  %s\n", in.Summary)
	if in.DetailedAnalysis != "" {
		fmt.Fprintf(w, "  %s\n", in.DetailedAnalysis)
	}
	if in.TimingAdvice != "" {
		fmt.Fprintf(w, "  Timing: %s\n", in.TimingAdvice)
	}
	for _, s := range in.Suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}
