package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const dayFormat = "2006-01-02"

type analyticsSummary struct {
	Users        int64   `json:"users"`
	Products     int64   `json:"products"`
	TotalSales   int64   `json:"totalSales"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type dailySalesRow struct {
	Date    string  `bson:"_id"`
	Sales   int64   `bson:"sales"`
	Revenue float64 `bson:"revenue"`
}

// DailySalesPoint is one zero-filled calendar-day bucket.
type DailySalesPoint struct {
	Date    string  `json:"date"`
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
}

// GetAnalytics returns overall totals plus a per-day series for the trailing
// seven days. An empty order history yields zeros, not an error.
func GetAnalytics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/analytics"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		summary, err := loadAnalyticsSummary(ctx, db)
		if err != nil {
			log.Println("[ANALYTICS] [ERROR] summary failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		end := time.Now()
		start := end.AddDate(0, 0, -7)

		daily, err := loadDailySalesSeries(ctx, db, start, end)
		if err != nil {
			log.Println("[ANALYTICS] [ERROR] daily series failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"analyticsData":  summary,
			"dailySalesData": daily,
		})
	}
}

func loadAnalyticsSummary(ctx context.Context, db *mongo.Database) (analyticsSummary, error) {
	totalUsers, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		return analyticsSummary{}, err
	}

	totalProducts, err := db.Collection("products").CountDocuments(ctx, bson.M{})
	if err != nil {
		return analyticsSummary{}, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalSales":   bson.M{"$sum": 1},
			"totalRevenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return analyticsSummary{}, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TotalSales   int64   `bson:"totalSales"`
		TotalRevenue float64 `bson:"totalRevenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return analyticsSummary{}, err
	}

	summary := analyticsSummary{
		Users:    totalUsers,
		Products: totalProducts,
	}
	if len(rows) > 0 {
		summary.TotalSales = rows[0].TotalSales
		summary.TotalRevenue = rows[0].TotalRevenue
	}
	return summary, nil
}

func loadDailySalesSeries(ctx context.Context, db *mongo.Database, start, end time.Time) ([]DailySalesPoint, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"sales":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []dailySalesRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	return fillDailySeries(dateRange(start, end), rows), nil
}

// dateRange lists every calendar day from start through end inclusive, in
// ascending order.
func dateRange(start, end time.Time) []string {
	var dates []string
	current := start.UTC().Truncate(24 * time.Hour)
	last := end.UTC().Truncate(24 * time.Hour)

	for !current.After(last) {
		dates = append(dates, current.Format(dayFormat))
		current = current.AddDate(0, 0, 1)
	}
	return dates
}

// fillDailySeries produces one point per day in the range, zero-filled for
// days with no orders.
func fillDailySeries(dates []string, rows []dailySalesRow) []DailySalesPoint {
	byDate := make(map[string]dailySalesRow, len(rows))
	for _, row := range rows {
		byDate[row.Date] = row
	}

	series := make([]DailySalesPoint, 0, len(dates))
	for _, date := range dates {
		row := byDate[date]
		series = append(series, DailySalesPoint{
			Date:    date,
			Sales:   row.Sales,
			Revenue: row.Revenue,
		})
	}
	return series
}
