package schema

import (
	"github.com/oncepay/oncepay/ent/schema/mixins"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IdempotencyKey is the lifecycle record for one idempotency token.
type IdempotencyKey struct {
	ent.Schema
}

func (IdempotencyKey) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "idempotency_keys"},
	}
}

func (IdempotencyKey) Mixin() []ent.Mixin {
	return []ent.Mixin{
		mixins.TimeMixin{},
	}
}

func (IdempotencyKey) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").MaxLen(128),
		field.String("status").MaxLen(32),
		field.String("response").Optional().Nillable(),
		field.String("owner").MaxLen(128).Optional().Nillable(),
		field.String("operation").MaxLen(64).Optional().Nillable(),
		field.Time("reserved_until"),
	}
}

func (IdempotencyKey) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("key").Unique(),
		index.Fields("status", "reserved_until"),
	}
}
