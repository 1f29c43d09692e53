package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is one movement prescribed in a workout session.
type Exercise struct {
	Name string `bson:"name" json:"name"`
	Sets int    `bson:"sets" json:"sets"`
	Reps string `bson:"reps" json:"reps"`
	Rest string `bson:"rest,omitempty" json:"rest,omitempty"`
}

// WorkoutSession is a single training day.
type WorkoutSession struct {
	Day       string     `bson:"day" json:"day"`
	Focus     string     `bson:"focus" json:"focus"`
	Exercises []Exercise `bson:"exercises" json:"exercises"`
}

// WorkoutPlan is a generated weekly training plan for a member
type WorkoutPlan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MemberID     primitive.ObjectID `bson:"memberId" json:"memberId"`
	Title        string             `bson:"title" json:"title"`
	Goal         string             `bson:"goal" json:"goal"`
	FitnessLevel string             `bson:"fitnessLevel" json:"fitnessLevel"`
	DaysPerWeek  int                `bson:"daysPerWeek" json:"daysPerWeek"`
	Sessions     []WorkoutSession   `bson:"sessions" json:"sessions"`
	GeneratedBy  string             `bson:"generatedBy" json:"generatedBy"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
