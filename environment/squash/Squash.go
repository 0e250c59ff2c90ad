// Package squash implements Squash, a single player paddle game in the
// style of Atari Breakout without bricks.
//
// The ball bounces off the side walls and the ceiling and must be
// returned with the paddle at the bottom of the screen. Each return
// is rewarded with +1. A life is lost whenever the ball passes the
// paddle, after which the ball rests on the paddle until it is
// launched with FIRE. Frames are 210 x 160 RGB images laid out like
// Atari frames, so that the same preprocessing can be used for both.
//
// Ball physics are simulated with Box2D and frames are rendered
// with gg.
package squash

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	"github.com/samuelfneumann/ddqn/environment"
	"github.com/samuelfneumann/ddqn/utils/floatutils"
	"golang.org/x/exp/rand"
)

// Actions available in Squash
const (
	NoOp  = environment.NoOp
	Fire  = environment.Fire
	Right = 2
	Left  = 3
)

const (
	// Frame size in pixels
	Height = 210
	Width  = 160

	// Pixels per Box2D unit
	Scale float64 = 10.0

	FPS           float64 = 60
	VelocityIters int     = 6
	PositionIters int     = 2

	// Playfield bounds in pixels
	WallWidth  float64 = 8
	CeilingY   float64 = 32
	PaddleY    float64 = 189
	PaddleH    float64 = 4
	BallRadius float64 = 2

	// Maximum angle from vertical of a ball returned by the paddle
	MaxBounceAngle float64 = math.Pi / 3
)

var (
	backgroundColour = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	wallColour       = color.RGBA{R: 142, G: 142, B: 142, A: 255}
	paddleColour     = color.RGBA{R: 200, G: 72, B: 72, A: 255}
	ballColour       = color.RGBA{R: 200, G: 72, B: 72, A: 255}
)

// Config implements a configuration of Squash
type Config struct {
	Lives       int
	FrameSkip   int     // Physics frames per action
	BallSpeed   float64 // Pixels per second
	PaddleSpeed float64 // Pixels per physics frame
	PaddleWidth float64 // Pixels
}

// DefaultConfig returns the default configuration of Squash
func DefaultConfig() Config {
	return Config{
		Lives:       5,
		FrameSkip:   4,
		BallSpeed:   120,
		PaddleSpeed: 3,
		PaddleWidth: 16,
	}
}

// Validate returns an error if the configuration is invalid
func (c Config) Validate() error {
	if c.Lives < 1 {
		return fmt.Errorf("validate: at least one life required, have(%v)",
			c.Lives)
	}
	if c.FrameSkip < 1 {
		return fmt.Errorf("validate: frame skip must be positive, have(%v)",
			c.FrameSkip)
	}
	if c.BallSpeed <= 0 || c.PaddleSpeed <= 0 {
		return fmt.Errorf("validate: speeds must be positive \n\tball(%v) "+
			"\n\tpaddle(%v)", c.BallSpeed, c.PaddleSpeed)
	}
	if c.PaddleWidth <= 0 || c.PaddleWidth > Width-2*WallWidth {
		return fmt.Errorf("validate: paddle width %v does not fit the "+
			"playfield", c.PaddleWidth)
	}
	return nil
}

// Squash implements the Squash game
type Squash struct {
	config Config
	rng    *rand.Rand

	world box2d.B2World
	ball  *box2d.B2Body
	walls []*box2d.B2Body

	paddleX float64 // Centre of the paddle in pixels
	held    bool    // Whether the ball rests on the paddle
	lives   int
	score   float64
}

// New returns a new Squash game
func New(c Config, seed uint64) (*Squash, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	s := &Squash{
		config: c,
		rng:    rand.New(rand.NewSource(seed)),
		world:  box2d.MakeB2World(box2d.MakeB2Vec2(0, 0)),
	}
	s.createWalls()
	s.createBall()

	return s, nil
}

// worldToPixel converts Box2D coordinates to pixels
func worldToPixel(v box2d.B2Vec2) (float64, float64) {
	return v.X * Scale, v.Y * Scale
}

// pixelToWorld converts pixels to Box2D coordinates
func pixelToWorld(x, y float64) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(x/Scale, y/Scale)
}

func (s *Squash) createWalls() {
	left, right := WallWidth, Width-WallWidth
	bottom := float64(Height)
	edges := [][2]box2d.B2Vec2{
		{pixelToWorld(left, CeilingY), pixelToWorld(left, bottom)},
		{pixelToWorld(left, CeilingY), pixelToWorld(right, CeilingY)},
		{pixelToWorld(right, CeilingY), pixelToWorld(right, bottom)},
	}

	s.walls = make([]*box2d.B2Body, len(edges))
	for i, edge := range edges {
		def := box2d.NewB2BodyDef()
		def.Type = 0 // Static body
		s.walls[i] = s.world.CreateBody(def)

		shape := box2d.NewB2EdgeShape()
		shape.Set(edge[0], edge[1])

		fix := box2d.MakeB2FixtureDef()
		fix.Shape = shape
		fix.Friction = 0.0
		fix.Restitution = 1.0
		s.walls[i].CreateFixtureFromDef(&fix)
	}
}

func (s *Squash) createBall() {
	def := box2d.MakeB2BodyDef()
	def.Type = 2 // Dynamic body
	def.Bullet = true
	def.FixedRotation = true
	def.Position = pixelToWorld(Width/2, PaddleY-BallRadius)
	s.ball = s.world.CreateBody(&def)

	shape := box2d.NewB2CircleShape()
	shape.M_radius = BallRadius / Scale

	fix := box2d.MakeB2FixtureDef()
	fix.Shape = shape
	fix.Density = 1.0
	fix.Friction = 0.0
	fix.Restitution = 1.0
	s.ball.CreateFixtureFromDef(&fix)
}

// Reset starts a new game with the ball resting on the paddle
func (s *Squash) Reset() (image.Image, error) {
	s.lives = s.config.Lives
	s.score = 0
	s.paddleX = Width / 2
	s.hold()
	return s.Render(), nil
}

// hold places the ball on the paddle
func (s *Squash) hold() {
	s.held = true
	s.ball.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	s.ball.SetTransform(pixelToWorld(s.paddleX, PaddleY-BallRadius), 0)
}

// launch releases the ball upwards at a random angle
func (s *Squash) launch() {
	s.held = false
	angle := (s.rng.Float64()*2 - 1) * math.Pi / 4
	s.setBallVelocity(angle)
	s.ball.SetAwake(true)
}

// setBallVelocity sets the ball velocity to BallSpeed, moving upwards
// at angle radians from vertical
func (s *Squash) setBallVelocity(angle float64) {
	speed := s.config.BallSpeed / Scale
	s.ball.SetLinearVelocity(box2d.MakeB2Vec2(speed*math.Sin(angle),
		-speed*math.Cos(angle)))
}

// Step takes one action, which is repeated for FrameSkip physics
// frames. The game ends when all lives are lost.
func (s *Squash) Step(action int) (image.Image, float64, bool, error) {
	if action < 0 || action >= s.NumActions() {
		return nil, 0, false, fmt.Errorf("step: action %v out of range "+
			"[0, %v)", action, s.NumActions())
	}
	if s.lives == 0 {
		return nil, 0, true, fmt.Errorf("step: game is over, call Reset")
	}

	reward := 0.0
	for i := 0; i < s.config.FrameSkip && s.lives > 0; i++ {
		reward += s.tick(action)
	}
	s.score += reward

	return s.Render(), reward, s.lives == 0, nil
}

// tick advances the game by a single physics frame
func (s *Squash) tick(action int) float64 {
	half := s.config.PaddleWidth / 2
	switch action {
	case Right:
		s.paddleX += s.config.PaddleSpeed
	case Left:
		s.paddleX -= s.config.PaddleSpeed
	case Fire:
		if s.held {
			s.launch()
		}
	}
	s.paddleX = floatutils.Clip(s.paddleX, WallWidth+half, Width-WallWidth-half)

	if s.held {
		s.ball.SetTransform(pixelToWorld(s.paddleX, PaddleY-BallRadius), 0)
		return 0
	}

	s.world.Step(1.0/FPS, VelocityIters, PositionIters)

	x, y := worldToPixel(s.ball.GetPosition())
	v := s.ball.GetLinearVelocity()

	// Paddle returns
	if v.Y > 0 && y+BallRadius >= PaddleY && y <= PaddleY+PaddleH &&
		math.Abs(x-s.paddleX) <= half+BallRadius {
		offset := floatutils.Clip((x-s.paddleX)/(half+BallRadius), -1, 1)
		s.ball.SetTransform(pixelToWorld(x, PaddleY-BallRadius), 0)
		s.setBallVelocity(offset * MaxBounceAngle)
		return 1
	}

	if y-BallRadius > Height {
		s.lives--
		s.hold()
		return 0
	}

	// Collisions with walls can shed energy, so keep the speed fixed
	if speed := math.Hypot(v.X, v.Y); speed > 0 {
		target := s.config.BallSpeed / Scale
		s.ball.SetLinearVelocity(box2d.MakeB2Vec2(v.X*target/speed,
			v.Y*target/speed))
	}
	return 0
}

// Render draws the current frame of the game
func (s *Squash) Render() image.Image {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(backgroundColour)
	dc.Clear()

	// Walls
	dc.SetColor(wallColour)
	dc.DrawRectangle(0, CeilingY-WallWidth, Width, WallWidth)
	dc.DrawRectangle(0, CeilingY, WallWidth, Height-CeilingY)
	dc.DrawRectangle(Width-WallWidth, CeilingY, WallWidth, Height-CeilingY)
	dc.Fill()

	// Remaining lives
	for i := 0; i < s.lives; i++ {
		dc.DrawRectangle(WallWidth+float64(i)*6, 8, 4, 8)
	}
	dc.SetColor(paddleColour)
	dc.Fill()

	dc.DrawRectangle(s.paddleX-s.config.PaddleWidth/2, PaddleY,
		s.config.PaddleWidth, PaddleH)
	dc.Fill()

	x, y := worldToPixel(s.ball.GetPosition())
	dc.SetColor(ballColour)
	dc.DrawCircle(x, y, BallRadius)
	dc.Fill()

	return dc.Image()
}

// Lives returns the number of lives left
func (s *Squash) Lives() int {
	return s.lives
}

// Score returns the total reward of the current game
func (s *Squash) Score() float64 {
	return s.score
}

// NumActions returns the number of actions in Squash
func (s *Squash) NumActions() int {
	return 4
}

// Close destroys all bodies of the game
func (s *Squash) Close() error {
	for _, wall := range s.walls {
		s.world.DestroyBody(wall)
	}
	s.walls = nil
	if s.ball != nil {
		s.world.DestroyBody(s.ball)
		s.ball = nil
	}
	return nil
}
