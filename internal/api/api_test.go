package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/larder/internal/api"
	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/recipe"
	"github.com/starford/larder/internal/relation"
	"github.com/starford/larder/internal/shopping"
	"github.com/starford/larder/internal/testutil"
)

var secret = []byte("test-secret")

type testEnv struct {
	router http.Handler
	ref    testutil.Reference
}

// newTestEnv builds the full handler stack over a temp database. When
// enabled is false every request acts as user 1.
func newTestEnv(t *testing.T, enabled bool) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	ref := testutil.Seed(t, db, 3)

	cat, err := catalog.New(db, 0)
	if err != nil {
		t.Fatal(err)
	}
	follows := relation.New(db, relation.Follow)
	favorites := relation.New(db, relation.Favorite)
	cart := relation.New(db, relation.Cart)

	h := api.NewHandler(api.Services{
		Composer:  recipe.NewComposer(db, cat, db),
		Projector: recipe.NewProjector(db, follows, favorites, cart),
		Catalog:   cat,
		Tags:      db,
		Follows:   follows,
		Favorites: favorites,
		Cart:      cart,
		Shopping:  shopping.NewAggregator(db),
	})
	auth := api.ActorMiddleware(api.AuthOptions{
		Enabled:  enabled,
		Secret:   secret,
		DevActor: models.Actor{UserID: 1},
	}, db)
	return &testEnv{router: api.NewRouter(h, auth, nil), ref: ref}
}

func token(t *testing.T, userID int64, admin bool) string {
	t.Helper()
	claims := api.Claims{
		Username: fmt.Sprintf("user%d", userID),
		Email:    fmt.Sprintf("user%d@example.com", userID),
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

// do sends a request as userID (0 for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID, false))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) recipeBody(name string, lines map[string]int) map[string]any {
	var ings []map[string]any
	for ing, amount := range lines {
		ings = append(ings, map[string]any{"id": e.ref.Ingredients[ing].ID, "amount": amount})
	}
	return map[string]any{
		"name":         name,
		"text":         "Cook it",
		"cooking_time": 10,
		"tags":         []int64{e.ref.Tags["dinner"].ID},
		"ingredients":  ings,
	}
}

func (e *testEnv) createRecipe(t *testing.T, userID int64, name string, lines map[string]int) int64 {
	t.Helper()
	w := e.do(t, http.MethodPost, "/recipes", userID, e.recipeBody(name, lines))
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q status = %d, body = %s", name, w.Code, w.Body.String())
	}
	var v api.RecipeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	return v.ID
}

func TestCreateAndGetRecipe(t *testing.T) {
	e := newTestEnv(t, true)
	id := e.createRecipe(t, 1, "Pancakes", map[string]int{"flour": 200, "egg": 2})

	w := e.do(t, http.MethodGet, fmt.Sprintf("/recipes/%d", id), 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var v api.RecipeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Name != "Pancakes" || v.Author.ID != 1 || len(v.Ingredients) != 2 {
		t.Errorf("recipe = %+v", v)
	}
	if len(v.Tags) != 1 || v.Tags[0].Slug != "dinner" {
		t.Errorf("tags = %+v", v.Tags)
	}
}

func TestCreateRecipe_Auth(t *testing.T) {
	e := newTestEnv(t, true)
	body := e.recipeBody("Toast", map[string]int{"flour": 1})

	if w := e.do(t, http.MethodPost, "/recipes", 0, body); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d, want 401", w.Code)
	}

	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/recipes", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}
}

func TestCreateRecipe_ValidationAndConflict(t *testing.T) {
	e := newTestEnv(t, true)

	body := e.recipeBody("Slow roast", map[string]int{"flour": 1})
	body["cooking_time"] = 1441
	w := e.do(t, http.MethodPost, "/recipes", 1, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if _, ok := resp.Fields["cooking_time"]; !ok {
		t.Errorf("fields = %v", resp.Fields)
	}

	body = e.recipeBody("Mystery", map[string]int{"flour": 1})
	body["ingredients"] = []map[string]any{{"id": 9999, "amount": 1}}
	if w := e.do(t, http.MethodPost, "/recipes", 1, body); w.Code != http.StatusBadRequest {
		t.Errorf("unknown ingredient = %d, want 400", w.Code)
	}

	e.createRecipe(t, 1, "Toast", map[string]int{"flour": 1})
	if w := e.do(t, http.MethodPost, "/recipes", 2, e.recipeBody("Toast", map[string]int{"egg": 1})); w.Code != http.StatusConflict {
		t.Errorf("duplicate name = %d, want 409", w.Code)
	}
}

func TestUpdateAndDeleteRecipe(t *testing.T) {
	e := newTestEnv(t, true)
	id := e.createRecipe(t, 1, "Omelette", map[string]int{"egg": 2})
	path := fmt.Sprintf("/recipes/%d", id)

	if w := e.do(t, http.MethodPatch, path, 2, e.recipeBody("Mine now", map[string]int{"egg": 1})); w.Code != http.StatusForbidden {
		t.Errorf("foreign update = %d, want 403", w.Code)
	}

	w := e.do(t, http.MethodPatch, path, 1, e.recipeBody("Sweet omelette", map[string]int{"sugar": 3}))
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var v api.RecipeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if len(v.Ingredients) != 1 || v.Ingredients[0].Name != "sugar" || v.Ingredients[0].Amount != 3 {
		t.Errorf("ingredients after update = %+v", v.Ingredients)
	}

	if w := e.do(t, http.MethodPatch, "/recipes/999", 1, e.recipeBody("Ghost", map[string]int{"egg": 1})); w.Code != http.StatusNotFound {
		t.Errorf("missing update = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodDelete, path, 2, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", w.Code)
	}
	if w := e.do(t, http.MethodDelete, path, 1, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := e.do(t, http.MethodGet, path, 1, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestFavoriteToggle(t *testing.T) {
	e := newTestEnv(t, true)
	id := e.createRecipe(t, 1, "Crepes", map[string]int{"flour": 100})
	path := fmt.Sprintf("/recipes/%d/favorite", id)

	w := e.do(t, http.MethodPost, path, 2, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("favorite = %d, body = %s", w.Code, w.Body.String())
	}
	var b api.BriefRecipeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	if b.ID != id || b.Name != "Crepes" {
		t.Errorf("brief = %+v", b)
	}

	if w := e.do(t, http.MethodPost, path, 2, nil); w.Code != http.StatusBadRequest {
		t.Errorf("second favorite = %d, want 400", w.Code)
	}

	w = e.do(t, http.MethodGet, "/recipes?is_favorited=1", 2, nil)
	var list []api.RecipeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || !list[0].IsFavorited {
		t.Errorf("favorited list = %+v", list)
	}

	if w := e.do(t, http.MethodDelete, path, 2, nil); w.Code != http.StatusNoContent {
		t.Errorf("unfavorite = %d, want 204", w.Code)
	}
	if w := e.do(t, http.MethodDelete, path, 2, nil); w.Code != http.StatusBadRequest {
		t.Errorf("second unfavorite = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/recipes/999/favorite", 2, nil); w.Code != http.StatusNotFound {
		t.Errorf("favorite missing recipe = %d, want 404", w.Code)
	}
	for _, missing := range []string{"/recipes/999/favorite", "/recipes/999/shopping_cart", "/users/99/subscribe"} {
		if w := e.do(t, http.MethodDelete, missing, 2, nil); w.Code != http.StatusNotFound {
			t.Errorf("DELETE %s = %d, want 404", missing, w.Code)
		}
	}
	if w := e.do(t, http.MethodPost, path, 0, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous favorite = %d, want 401", w.Code)
	}
}

func TestSubscribe(t *testing.T) {
	e := newTestEnv(t, true)
	e.createRecipe(t, 1, "A", map[string]int{"egg": 1})
	e.createRecipe(t, 1, "B", map[string]int{"egg": 2})

	if w := e.do(t, http.MethodPost, "/users/2/subscribe", 2, nil); w.Code != http.StatusBadRequest {
		t.Errorf("self subscribe = %d, want 400", w.Code)
	}

	w := e.do(t, http.MethodPost, "/users/1/subscribe?recipes_limit=1", 2, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe = %d, body = %s", w.Code, w.Body.String())
	}
	var card api.SubscriptionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &card)
	if !card.IsSubscribed || card.RecipesCount != 2 || len(card.Recipes) != 1 {
		t.Errorf("card = %+v", card)
	}

	if w := e.do(t, http.MethodPost, "/users/1/subscribe", 2, nil); w.Code != http.StatusBadRequest {
		t.Errorf("second subscribe = %d, want 400", w.Code)
	}

	w = e.do(t, http.MethodGet, "/users/subscriptions", 2, nil)
	var subs []api.SubscriptionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &subs)
	if w.Code != http.StatusOK || len(subs) != 1 || subs[0].ID != 1 {
		t.Errorf("subscriptions = %d %+v", w.Code, subs)
	}

	w = e.do(t, http.MethodGet, "/users/1", 2, nil)
	if !strings.Contains(w.Body.String(), `"is_subscribed":true`) {
		t.Errorf("profile = %s", w.Body.String())
	}

	if w := e.do(t, http.MethodDelete, "/users/1/subscribe", 2, nil); w.Code != http.StatusNoContent {
		t.Errorf("unsubscribe = %d, want 204", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/users/1/subscribe", 2, nil); w.Code != http.StatusBadRequest {
		t.Errorf("second unsubscribe = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/users/subscriptions", 0, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous subscriptions = %d, want 401", w.Code)
	}
}

func TestDownloadShoppingCart(t *testing.T) {
	e := newTestEnv(t, true)
	x := e.createRecipe(t, 1, "X", map[string]int{"flour": 200, "egg": 2})
	y := e.createRecipe(t, 1, "Y", map[string]int{"flour": 300, "sugar": 1})
	for _, id := range []int64{x, y} {
		if w := e.do(t, http.MethodPost, fmt.Sprintf("/recipes/%d/shopping_cart", id), 2, nil); w.Code != http.StatusCreated {
			t.Fatalf("add to cart = %d", w.Code)
		}
	}

	w := e.do(t, http.MethodGet, "/recipes/download_shopping_cart", 2, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "shopping_cart.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	want := "Shopping list:\n\negg - 2, pcs\nflour - 500, g\nsugar - 1, g"
	if w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}

	if w := e.do(t, http.MethodGet, "/recipes/download_shopping_cart", 0, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous download = %d, want 401", w.Code)
	}
}

func TestReferenceData(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodGet, "/tags", 0, nil)
	var tags []models.Tag
	_ = json.Unmarshal(w.Body.Bytes(), &tags)
	if w.Code != http.StatusOK || len(tags) != 2 {
		t.Errorf("tags = %d %+v", w.Code, tags)
	}
	if w := e.do(t, http.MethodGet, "/tags/999", 0, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing tag = %d, want 404", w.Code)
	}

	w = e.do(t, http.MethodGet, "/ingredients?name=fl", 0, nil)
	var ings []models.Ingredient
	_ = json.Unmarshal(w.Body.Bytes(), &ings)
	if len(ings) == 0 || ings[0].Name != "flour" {
		t.Errorf("ingredients = %+v", ings)
	}

	flour := e.ref.Ingredients["flour"]
	w = e.do(t, http.MethodGet, fmt.Sprintf("/ingredients/%d", flour.ID), 0, nil)
	var got models.Ingredient
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got != flour {
		t.Errorf("ingredient = %+v, want %+v", got, flour)
	}
	if w := e.do(t, http.MethodGet, "/ingredients/abc", 0, nil); w.Code != http.StatusNotFound {
		t.Errorf("non-numeric id = %d, want 404", w.Code)
	}
}

func TestDisabledAuthActsAsDevUser(t *testing.T) {
	e := newTestEnv(t, false)
	id := e.createRecipe(t, 0, "Dev toast", map[string]int{"flour": 1})

	w := e.do(t, http.MethodGet, fmt.Sprintf("/recipes/%d", id), 0, nil)
	var v api.RecipeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Author.ID != 1 {
		t.Errorf("author = %d, want dev user 1", v.Author.ID)
	}
}

func TestTokenSyncsUser(t *testing.T) {
	e := newTestEnv(t, true)
	// User 7 is not seeded; a valid token creates the row.
	if w := e.do(t, http.MethodPost, "/users/1/subscribe", 7, nil); w.Code != http.StatusCreated {
		t.Fatalf("subscribe as new user = %d, body = %s", w.Code, w.Body.String())
	}
	w := e.do(t, http.MethodGet, "/users/7", 0, nil)
	if !strings.Contains(w.Body.String(), `"username":"user7"`) {
		t.Errorf("profile = %s", w.Body.String())
	}
}
