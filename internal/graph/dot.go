// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"fmt"
	"io"
)

// dotID is the quoted DOT identifier of n: its Kind and ID joined by ':'.
func dotID(n *Node) string {
	return fmt.Sprintf("%s:%s", n.Kind(), n.ID())
}

// WriteDOT renders g as a GraphViz digraph for debugging: FileNodes as
// boxes, CommandNodes as ellipses, with every dep edge drawn from the
// dependency to the node that depends on it (a file a command read or
// wrote points at that command). Adapted from the teacher's GraphViz tool
// (graphviz.go), which walked ninja's Edge/Node pointer graph the same way
// for .ninja build graphs; here it walks each node's Deps instead of
// in_edge/out_edges.
func WriteDOT(w io.Writer, g *Graph) {
	fmt.Fprintln(w, "digraph tracebuild {")
	fmt.Fprintln(w, `rankdir="LR"`)
	fmt.Fprintln(w, "node [fontsize=10, height=0.25]")
	fmt.Fprintln(w, "edge [fontsize=10]")

	for _, n := range g.All() {
		shape := "box"
		if n.Kind() == KindCommand {
			shape = "ellipse"
		}
		fmt.Fprintf(w, "%q [label=%q, shape=%s]\n", dotID(n), n.String(), shape)
	}
	for _, n := range g.All() {
		for _, d := range n.Deps() {
			fmt.Fprintf(w, "%q -> %q\n", dotID(d), dotID(n))
		}
	}

	fmt.Fprintln(w, "}")
}
