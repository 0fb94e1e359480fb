package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"toolhaus/db"
	"toolhaus/models"
	"toolhaus/rdx"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var productUploadPath = "./static/productpic"

// CreateProduct handles the admin product form (multipart, optional
// image upload).
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Unable to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if len(name) == 0 || len(name) > 100 {
		http.Error(w, "Name must be between 1 and 100 characters.", http.StatusBadRequest)
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil || price <= 0 {
		http.Error(w, "Invalid price value. Must be a positive number.", http.StatusBadRequest)
		return
	}

	stock, err := strconv.Atoi(r.FormValue("stockCount"))
	if err != nil || stock < 0 {
		http.Error(w, "Invalid stock value. Must be a non-negative integer.", http.StatusBadRequest)
		return
	}

	product := models.Product{
		ProductID:   utils.GenerateID(14),
		Name:        name,
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Brand:       r.FormValue("brand"),
		Price:       price,
		StockCount:  stock,
		Featured:    r.FormValue("featured") == "true",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	file, header, err := r.FormFile("image")
	if err != nil && err != http.ErrMissingFile {
		http.Error(w, "Error retrieving image file: "+err.Error(), http.StatusBadRequest)
		return
	}
	if file != nil {
		defer file.Close()
		if !utils.ValidateImageFileType(w, header) {
			return
		}
		if err := utils.EnsureDir(productUploadPath); err != nil {
			http.Error(w, "Error saving image: "+err.Error(), http.StatusInternalServerError)
			return
		}
		filename, err := utils.SaveFile(file, header, productUploadPath)
		if err != nil {
			http.Error(w, "Error saving image: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := utils.CreateThumb(filename, productUploadPath, 300); err != nil {
			http.Error(w, "Error creating thumbnail: "+err.Error(), http.StatusInternalServerError)
			return
		}
		product.Image = filename
	}

	if _, err := db.ProductsCollection.InsertOne(r.Context(), product); err != nil {
		http.Error(w, "Failed to insert product: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rdx.CacheStockCount(r.Context(), product.ProductID, product.StockCount)

	utils.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"message": "Product created successfully.",
		"data":    product,
	})
}

// EditProduct updates catalog fields. stockCount is deliberately not
// editable here; replenishment goes through ReplenishStock and
// decrements only happen inside order transactions.
func EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	var body struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Brand       string  `json:"brand"`
		Price       float64 `json:"price"`
		Featured    *bool   `json:"featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid input data", http.StatusBadRequest)
		return
	}

	updateFields := bson.M{"updatedAt": time.Now()}
	if body.Name != "" {
		if len(body.Name) > 100 {
			http.Error(w, "Name must be between 1 and 100 characters.", http.StatusBadRequest)
			return
		}
		updateFields["name"] = body.Name
	}
	if body.Description != "" {
		updateFields["description"] = body.Description
	}
	if body.Category != "" {
		updateFields["category"] = body.Category
	}
	if body.Brand != "" {
		updateFields["brand"] = body.Brand
	}
	if body.Price > 0 {
		updateFields["price"] = body.Price
	}
	if body.Featured != nil {
		updateFields["featured"] = *body.Featured
	}

	result, err := db.ProductsCollection.UpdateOne(
		r.Context(),
		bson.M{"productid": productID},
		bson.M{"$set": updateFields},
	)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to update product: %v", err), http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Product updated successfully",
	})
}

func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	result, err := db.ProductsCollection.DeleteOne(r.Context(), bson.M{"productid": productID})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to delete product: %v", err), http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	rdx.RdxDel("stock:" + productID)

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Product deleted successfully",
	})
}

// ReplenishStock atomically adds incoming inventory. The $inc is
// unconditional for positive amounts, so it composes with concurrent
// order decrements without a transaction.
func ReplenishStock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	var body struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		http.Error(w, "Amount must be a positive integer", http.StatusBadRequest)
		return
	}

	result := db.ProductsCollection.FindOneAndUpdate(
		r.Context(),
		bson.M{"productid": productID},
		bson.M{"$inc": bson.M{"stockCount": body.Amount}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if result.Err() != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	var before models.Product
	if err := result.Decode(&before); err != nil {
		http.Error(w, "Failed to decode product", http.StatusInternalServerError)
		return
	}
	newCount := before.StockCount + body.Amount

	rdx.CacheStockCount(r.Context(), productID, newCount)

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"message":    fmt.Sprintf("Added %d units", body.Amount),
		"stockCount": newCount,
	})
}
