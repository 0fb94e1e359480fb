package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"

	"toolhaus/db"
	"toolhaus/models"
	"toolhaus/rdx"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetProducts lists the catalog with optional category/brand/search
// filters, sorting and pagination.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts := utils.ParseQueryOptions(r)

	filter := bson.M{}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	if opts.Brand != "" {
		filter["brand"] = opts.Brand
	}
	if opts.Search != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": opts.Search, "$options": "i"}},
			{"description": bson.M{"$regex": opts.Search, "$options": "i"}},
		}
	}
	if r.URL.Query().Get("featured") == "true" {
		filter["featured"] = true
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	switch opts.Sort {
	case "price_asc":
		sort = bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		sort = bson.D{{Key: "price", Value: -1}}
	case "name":
		sort = bson.D{{Key: "name", Value: 1}}
	}

	findOpts := options.Find().
		SetSort(sort).
		SetSkip(int64((opts.Page - 1) * opts.Limit)).
		SetLimit(int64(opts.Limit))

	cursor, err := db.ProductsCollection.Find(r.Context(), filter, findOpts)
	if err != nil {
		http.Error(w, "Failed to fetch products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	var products []models.Product
	if err := cursor.All(r.Context(), &products); err != nil {
		http.Error(w, "Failed to decode products", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	total, err := db.ProductsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to count products", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ok":    true,
		"data":  products,
		"page":  opts.Page,
		"limit": opts.Limit,
		"total": total,
	})
}

// GetProduct returns one product. The stockCount it reports may trail
// a committed order by a moment; the cached copy is overlaid when
// fresher.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	var product models.Product
	err := db.ProductsCollection.FindOne(r.Context(), bson.M{"productid": productID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch product: %v", err), http.StatusInternalServerError)
		return
	}

	if cached, ok := rdx.CachedStockCount(r.Context(), productID); ok {
		product.StockCount = cached
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// GetCategories returns the distinct categories in the catalog, for
// the browse sidebar.
func GetCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	values, err := db.ProductsCollection.Distinct(r.Context(), "category", bson.M{})
	if err != nil {
		http.Error(w, "Failed to fetch categories", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, values)
}
