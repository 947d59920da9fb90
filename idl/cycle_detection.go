package idl

// TypeDependencyGraph represents the reference relationships between the
// named types of a schema
type TypeDependencyGraph struct {
	Nodes map[string]*TypeNode
	Edges map[string][]string // type name -> list of referenced type names

	order []string // insertion order, keeps traversals deterministic
}

// TypeNode represents a named type in the dependency graph
type TypeNode struct {
	Name    string
	Type    Type
	InCycle bool // set by DetectCycles
}

// NewTypeDependencyGraph creates a new dependency graph
func NewTypeDependencyGraph() *TypeDependencyGraph {
	return &TypeDependencyGraph{
		Nodes: make(map[string]*TypeNode),
		Edges: make(map[string][]string),
	}
}

// AddType adds a type to the dependency graph
func (g *TypeDependencyGraph) AddType(name string, t Type) {
	if _, exists := g.Nodes[name]; !exists {
		g.Nodes[name] = &TypeNode{Name: name, Type: t}
		g.Edges[name] = []string{}
		g.order = append(g.order, name)
	}
}

// AddDependency adds a dependency relationship (from -> to)
func (g *TypeDependencyGraph) AddDependency(from, to string) {
	g.AddType(from, nil)
	g.AddType(to, nil)

	for _, existing := range g.Edges[from] {
		if existing == to {
			return
		}
	}

	g.Edges[from] = append(g.Edges[from], to)
}

// DetectCycles performs cycle detection and returns all detected cycles
func (g *TypeDependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	for _, name := range g.order {
		if !visited[name] {
			if cycle := g.findCycleDFS(name, visited, recursionStack, []string{}); cycle != nil {
				cycles = append(cycles, cycle)
				for _, cycleName := range cycle {
					if node := g.Nodes[cycleName]; node != nil {
						node.InCycle = true
					}
				}
			}
		}
	}

	return cycles
}

// findCycleDFS performs DFS to find cycles, returns the cycle path if found
func (g *TypeDependencyGraph) findCycleDFS(current string, visited, recursionStack map[string]bool, path []string) []string {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, neighbor := range g.Edges[current] {
		if cycle := g.processNeighbor(neighbor, visited, recursionStack, path); cycle != nil {
			return cycle
		}
	}

	recursionStack[current] = false
	return nil
}

// processNeighbor handles the logic for processing a single neighbor during DFS
func (g *TypeDependencyGraph) processNeighbor(neighbor string, visited, recursionStack map[string]bool, path []string) []string {
	if !visited[neighbor] {
		return g.findCycleDFS(neighbor, visited, recursionStack, path)
	}

	if recursionStack[neighbor] {
		// Back edge: neighbor is on the current path
		return g.extractCycle(neighbor, path)
	}

	return nil
}

// extractCycle extracts the cycle path when a back edge is detected
func (g *TypeDependencyGraph) extractCycle(backEdgeTarget string, path []string) []string {
	cycleStartIndex := g.findNodeInPath(backEdgeTarget, path)
	if cycleStartIndex < 0 {
		return nil
	}

	cycleNodes := make([]string, 0, len(path)-cycleStartIndex+1)
	cycleNodes = append(cycleNodes, path[cycleStartIndex:]...)
	cycleNodes = append(cycleNodes, backEdgeTarget)

	return cycleNodes
}

// findNodeInPath searches for a node in the current DFS path
func (g *TypeDependencyGraph) findNodeInPath(targetNode string, path []string) int {
	for i, node := range path {
		if node == targetNode {
			return i
		}
	}
	return -1
}

// TopologicalOrder returns the node names with every type after the types
// it references. Ties keep insertion order; edges closing a cycle are
// ignored.
func (g *TypeDependencyGraph) TopologicalOrder() []string {
	done := make(map[string]bool)
	onPath := make(map[string]bool)
	result := make([]string, 0, len(g.order))

	var visit func(name string)
	visit = func(name string) {
		if done[name] || onPath[name] {
			return
		}
		onPath[name] = true
		for _, dep := range g.Edges[name] {
			visit(dep)
		}
		onPath[name] = false
		done[name] = true
		result = append(result, name)
	}

	for _, name := range g.order {
		visit(name)
	}
	return result
}

// AnalyzeTypeDependencies builds the dependency graph from a parsed
// schema. Only types declared by the schema become nodes; references
// through anonymous types are attributed to the enclosing named type.
func AnalyzeTypeDependencies(s *Schema) *TypeDependencyGraph {
	return analyzeDependencies(s, true)
}

// AnalyzeValueDependencies is AnalyzeTypeDependencies without the edges
// to array element types. Array members are pointers in C, so only this
// graph must be acyclic.
func AnalyzeValueDependencies(s *Schema) *TypeDependencyGraph {
	return analyzeDependencies(s, false)
}

func analyzeDependencies(s *Schema, withArrays bool) *TypeDependencyGraph {
	graph := NewTypeDependencyGraph()

	declared := make(map[Type]bool)
	for _, t := range s.All() {
		graph.AddType(t.Info().TypeName, t)
		declared[t] = true
	}

	for _, t := range s.All() {
		from := t.Info().TypeName
		for _, ref := range references(t) {
			if ref.throughArray && !withArrays {
				continue
			}
			if declared[ref.t] {
				graph.AddDependency(from, ref.t.Info().TypeName)
			}
		}
	}

	return graph
}

// Order returns the declared types, builtins first, with each type after
// the named types it references.
func Order(s *Schema) []Type {
	graph := AnalyzeTypeDependencies(s)
	names := graph.TopologicalOrder()
	types := make([]Type, 0, len(names))
	for _, name := range names {
		types = append(types, graph.Nodes[name].Type)
	}
	return types
}

type reference struct {
	t            Type
	throughArray bool
}

// references lists the types t refers to directly, looking through
// anonymous aggregates and arrays.
func references(t Type) []reference {
	var refs []reference
	var walk func(ft Type, inArray bool)
	walk = func(ft Type, inArray bool) {
		switch ft := ft.(type) {
		case *Struct:
			if ft.Anonymous() {
				for _, f := range ft.Fields {
					walk(f.Type, inArray)
				}
				return
			}
		case *KeyedUnion:
			for _, f := range ft.Fields {
				walk(f.Type, inArray)
			}
			return
		case *Array:
			walk(ft.Elem, true)
			return
		}
		refs = append(refs, reference{t: ft, throughArray: inArray})
	}

	switch t := t.(type) {
	case *Struct:
		for _, f := range t.Fields {
			walk(f.Type, false)
		}
	case *KeyedUnion:
		for _, f := range t.Fields {
			walk(f.Type, false)
		}
	case *Array:
		walk(t.Elem, true)
	}
	return refs
}
