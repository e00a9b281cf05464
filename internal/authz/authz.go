// Package authz holds the single ownership check every domain service uses.
package authz

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

// Relation names how a user is attached to a resource.
type Relation string

const (
	RelationOwner      Relation = "owner"
	RelationBuyer      Relation = "buyer"
	RelationSeller     Relation = "seller"
	RelationSupplier   Relation = "supplier"
	RelationStoreOwner Relation = "store_owner"
)

// Resource binds relations to the users holding them.
type Resource struct {
	Kind      string
	Relations map[Relation]uuid.UUID
}

// Require succeeds when actor holds at least one of the given relations on res.
func Require(actor uuid.UUID, res Resource, relations ...Relation) error {
	if actor == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	for _, rel := range relations {
		holder, ok := res.Relations[rel]
		if ok && holder != uuid.Nil && holder == actor {
			return nil
		}
	}
	names := make([]string, 0, len(relations))
	for _, rel := range relations {
		names = append(names, strings.ReplaceAll(string(rel), "_", " "))
	}
	return pkgerrors.New(pkgerrors.CodeForbidden,
		fmt.Sprintf("only the %s may do this on a %s", strings.Join(names, " or "), res.Kind))
}

// Holds reports whether actor holds rel on res.
func Holds(actor uuid.UUID, res Resource, rel Relation) bool {
	return Require(actor, res, rel) == nil
}

func Inquiry(i *models.Inquiry) Resource {
	return Resource{Kind: "inquiry", Relations: map[Relation]uuid.UUID{
		RelationBuyer:    i.BuyerID,
		RelationSupplier: i.SupplierID,
	}}
}

func GigOrder(o *models.GigOrder) Resource {
	return Resource{Kind: "gig order", Relations: map[Relation]uuid.UUID{
		RelationBuyer:  o.BuyerID,
		RelationSeller: o.SellerID,
	}}
}

// ProductOrder needs the owner of the order's store, which lives on the store row.
func ProductOrder(o *models.ProductOrder, store *models.Store) Resource {
	rel := map[Relation]uuid.UUID{RelationBuyer: o.BuyerID}
	if store != nil {
		rel[RelationStoreOwner] = store.OwnerID
	}
	return Resource{Kind: "warehouse order", Relations: rel}
}

func Store(s *models.Store) Resource {
	return Resource{Kind: "store", Relations: map[Relation]uuid.UUID{
		RelationOwner:      s.OwnerID,
		RelationStoreOwner: s.OwnerID,
	}}
}
