package train

import (
	"fmt"
	"math"

	"github.com/atgjack/prob"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/reallyasi9/cfb-predict/internal/config"
)

// numericInputs are the per-step inputs besides the two embeddings: week, home, previous margin.
const numericInputs = 3

// gates are the LSTM blocks of each layer's pre-activation, in input, forget, cell, output order.
const gates = 4

// Model is a stacked LSTM over team-season sequences.  Team and opponent share one embedding
// table.  Each step emits the probability that the team wins.
type Model struct {
	vocab, embed, hidden, layers int

	// embedding, then input weights, recurrent weights and bias of each layer, then the output
	// weights and bias
	weights []*tensor.Dense

	net    *unrolled
	solver G.Solver
}

// unrolled is the expression graph of the model over a fixed number of steps.  Shorter
// sequences are padded at the end and masked out of the cost.
type unrolled struct {
	steps int
	g     *G.ExprGraph
	vm    G.VM

	learnables G.Nodes

	team, opp, num *G.Node
	win, mask      *G.Node
	count          *G.Node

	logits G.Value
	cost   G.Value
}

func normalDense(sigma float64, shape ...int) (*tensor.Dense, error) {
	normal, err := prob.NewNormal(0, sigma)
	if err != nil {
		return nil, err
	}
	size := 1
	for _, d := range shape {
		size *= d
	}
	backing := make([]float64, size)
	for i := range backing {
		backing[i] = normal.Random()
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// NewModel builds a randomly initialised model for a vocabulary of the given size.
func NewModel(vocab int, cfg config.Trainer) (*Model, error) {
	if vocab <= 0 || cfg.EmbeddingSize <= 0 || cfg.HiddenSize <= 0 || cfg.Layers <= 0 {
		return nil, fmt.Errorf("NewModel: sizes must be positive: vocab %d, embedding %d, hidden %d, layers %d",
			vocab, cfg.EmbeddingSize, cfg.HiddenSize, cfg.Layers)
	}
	m := &Model{
		vocab:  vocab,
		embed:  cfg.EmbeddingSize,
		hidden: cfg.HiddenSize,
		layers: cfg.Layers,
	}
	h := cfg.HiddenSize

	emb, err := normalDense(1/math.Sqrt(float64(cfg.EmbeddingSize)), vocab, cfg.EmbeddingSize)
	if err != nil {
		return nil, fmt.Errorf("NewModel: %w", err)
	}
	m.weights = append(m.weights, emb)

	in := 2*cfg.EmbeddingSize + numericInputs
	for l := 0; l < cfg.Layers; l++ {
		w, err := normalDense(1/math.Sqrt(float64(in)), gates*h, in)
		if err != nil {
			return nil, fmt.Errorf("NewModel: %w", err)
		}
		u, err := normalDense(1/math.Sqrt(float64(h)), gates*h, h)
		if err != nil {
			return nil, fmt.Errorf("NewModel: %w", err)
		}
		bias := make([]float64, gates*h)
		for i := h; i < 2*h; i++ {
			bias[i] = 1 // forget gate starts open
		}
		b := tensor.New(tensor.WithShape(gates*h), tensor.WithBacking(bias))
		m.weights = append(m.weights, w, u, b)
		in = h
	}

	wo, err := normalDense(1/math.Sqrt(float64(h)), 1, h)
	if err != nil {
		return nil, fmt.Errorf("NewModel: %w", err)
	}
	bo := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float64{0}))
	m.weights = append(m.weights, wo, bo)
	return m, nil
}

// unroll returns a graph long enough for a sequence of n steps, building a new one if needed.
// Every graph has at least two steps so that each weight takes part in the cost.
func (m *Model) unroll(n int) (*unrolled, error) {
	if m.net != nil && m.net.steps >= n {
		return m.net, nil
	}
	if n < 2 {
		n = 2
	}
	if m.net != nil {
		for i, node := range m.net.learnables {
			m.weights[i] = node.Value().(*tensor.Dense)
		}
		m.net.vm.Close()
		m.net = nil
	}
	u, err := m.build(n)
	if err != nil {
		return nil, err
	}
	m.net = u
	return u, nil
}

func (m *Model) build(steps int) (*unrolled, error) {
	g := G.NewGraph()
	u := &unrolled{steps: steps, g: g}
	for i, w := range m.weights {
		u.learnables = append(u.learnables,
			G.NewTensor(g, tensor.Float64, w.Dims(), G.WithShape(w.Shape()...), G.WithValue(w), G.WithName(fmt.Sprintf("w%d", i))))
	}
	u.team = G.NewMatrix(g, tensor.Float64, G.WithShape(steps, m.vocab), G.WithName("team"))
	u.opp = G.NewMatrix(g, tensor.Float64, G.WithShape(steps, m.vocab), G.WithName("opponent"))
	u.num = G.NewMatrix(g, tensor.Float64, G.WithShape(steps, numericInputs), G.WithName("numeric"))
	u.win = G.NewVector(g, tensor.Float64, G.WithShape(steps), G.WithName("win"))
	u.mask = G.NewVector(g, tensor.Float64, G.WithShape(steps), G.WithName("mask"))
	u.count = G.NewScalar(g, tensor.Float64, G.WithName("count"))

	// one-hot rows times the table select each step's embeddings
	emb := u.learnables[0]
	teamEmb := G.Must(G.Mul(u.team, emb))
	oppEmb := G.Must(G.Mul(u.opp, emb))
	wo, bo := u.learnables[len(u.learnables)-2], u.learnables[len(u.learnables)-1]

	hs := make([]*G.Node, m.layers)
	cs := make([]*G.Node, m.layers)
	logits := make(G.Nodes, steps)
	for t := 0; t < steps; t++ {
		x := G.Must(G.Concat(0,
			G.Must(G.Slice(teamEmb, G.S(t))),
			G.Must(G.Slice(oppEmb, G.S(t))),
			G.Must(G.Slice(u.num, G.S(t))),
		))
		for l := 0; l < m.layers; l++ {
			w, r, b := u.learnables[1+3*l], u.learnables[2+3*l], u.learnables[3+3*l]
			z := G.Must(G.Add(G.Must(G.Mul(w, x)), b))
			if t > 0 {
				z = G.Must(G.Add(z, G.Must(G.Mul(r, hs[l]))))
			}
			block := func(k int) *G.Node {
				return G.Must(G.Slice(z, G.S(k*m.hidden, (k+1)*m.hidden)))
			}
			in := G.Must(G.Sigmoid(block(0)))
			cand := G.Must(G.Tanh(block(2)))
			out := G.Must(G.Sigmoid(block(3)))
			c := G.Must(G.HadamardProd(in, cand))
			if t > 0 {
				forget := G.Must(G.Sigmoid(block(1)))
				c = G.Must(G.Add(c, G.Must(G.HadamardProd(forget, cs[l]))))
			}
			cs[l] = c
			hs[l] = G.Must(G.HadamardProd(out, G.Must(G.Tanh(c))))
			x = hs[l]
		}
		logits[t] = G.Must(G.Add(G.Must(G.Mul(wo, x)), bo))
	}
	z := G.Must(G.Concat(0, logits...))

	// mean binary cross-entropy over the unmasked steps, from the logits
	bce := G.Must(G.Sub(G.Must(G.Softplus(z)), G.Must(G.HadamardProd(u.win, z))))
	cost := G.Must(G.Div(G.Must(G.Sum(G.Must(G.HadamardProd(u.mask, bce)))), u.count))
	G.Read(z, &u.logits)
	G.Read(cost, &u.cost)

	if _, err := G.Grad(cost, u.learnables...); err != nil {
		return nil, fmt.Errorf("gradient: %w", err)
	}
	u.vm = G.NewTapeMachine(g, G.BindDualValues(u.learnables...))
	return u, nil
}

// run evaluates seq and, if learn is set, takes one optimiser step on its gradient.  It returns
// the logit of every step and the mean loss.
func (m *Model) run(seq []Step, learn bool) ([]float64, float64, error) {
	u, err := m.unroll(len(seq))
	if err != nil {
		return nil, 0, err
	}
	n, v := u.steps, m.vocab
	team := make([]float64, n*v)
	opp := make([]float64, n*v)
	num := make([]float64, n*numericInputs)
	win := make([]float64, n)
	mask := make([]float64, n)
	for t, s := range seq {
		team[t*v+s.Team] = 1
		opp[t*v+s.Opponent] = 1
		copy(num[t*numericInputs:], []float64{s.Week, s.Home, s.PrevMargin})
		win[t] = s.Win
		mask[t] = 1
	}

	lets := []struct {
		node  *G.Node
		value G.Value
	}{
		{u.team, tensor.New(tensor.WithShape(n, v), tensor.WithBacking(team))},
		{u.opp, tensor.New(tensor.WithShape(n, v), tensor.WithBacking(opp))},
		{u.num, tensor.New(tensor.WithShape(n, numericInputs), tensor.WithBacking(num))},
		{u.win, tensor.New(tensor.WithShape(n), tensor.WithBacking(win))},
		{u.mask, tensor.New(tensor.WithShape(n), tensor.WithBacking(mask))},
		{u.count, G.NewF64(float64(len(seq)))},
	}
	for _, l := range lets {
		if err := G.Let(l.node, l.value); err != nil {
			return nil, 0, err
		}
	}

	defer u.vm.Reset()
	if err := u.vm.RunAll(); err != nil {
		return nil, 0, err
	}
	z := make([]float64, len(seq))
	copy(z, u.logits.Data().([]float64))
	loss := u.cost.Data().(float64)

	if learn {
		if m.solver == nil {
			return nil, 0, fmt.Errorf("no optimiser")
		}
		if err := m.solver.Step(G.NodesToValueGrads(u.learnables)); err != nil {
			return nil, 0, err
		}
	}
	return z, loss, nil
}

// score returns the mean binary cross-entropy of seq and the number of steps whose prediction
// falls on the right side of one half.
func (m *Model) score(seq []Step, learn bool) (float64, int, error) {
	z, loss, err := m.run(seq, learn)
	if err != nil {
		return 0, 0, err
	}
	correct := 0
	for t, s := range seq {
		if (z[t] >= 0) == (s.Win >= .5) {
			correct++
		}
	}
	return loss, correct, nil
}

// Predict returns the win probability at each step of seq.
func (m *Model) Predict(seq []Step) ([]float64, error) {
	if len(seq) == 0 {
		return nil, nil
	}
	z, _, err := m.run(seq, false)
	if err != nil {
		return nil, fmt.Errorf("Predict: %w", err)
	}
	p := make([]float64, len(z))
	for t, x := range z {
		p[t] = 1 / (1 + math.Exp(-x))
	}
	return p, nil
}
