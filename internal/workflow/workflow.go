// Package workflow builds ComfyUI prompt graphs. A graph is the API-format
// node map keyed by node id; comfycam treats it as an opaque template with a
// single substitutable input: the image filename of one LoadImage node.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
)

// defaultGraph is a minimal img2img pipeline. Node "10" loads the uploaded
// frame, node "9" saves the generated image; the poller watches "9".
const defaultGraph = `{
  "3": {
    "class_type": "KSampler",
    "inputs": {
      "cfg": 7.0,
      "denoise": 0.65,
      "latent_image": ["12", 0],
      "model": ["4", 0],
      "negative": ["7", 0],
      "positive": ["6", 0],
      "sampler_name": "euler",
      "scheduler": "normal",
      "seed": 0,
      "steps": 20
    }
  },
  "4": {
    "class_type": "CheckpointLoaderSimple",
    "inputs": {
      "ckpt_name": "sd_xl_base_1.0.safetensors"
    }
  },
  "6": {
    "class_type": "CLIPTextEncode",
    "inputs": {
      "clip": ["4", 1],
      "text": "cinematic photo, detailed, natural light"
    }
  },
  "7": {
    "class_type": "CLIPTextEncode",
    "inputs": {
      "clip": ["4", 1],
      "text": "blurry, lowres, artifacts"
    }
  },
  "8": {
    "class_type": "VAEDecode",
    "inputs": {
      "samples": ["3", 0],
      "vae": ["4", 2]
    }
  },
  "9": {
    "class_type": "SaveImage",
    "inputs": {
      "filename_prefix": "comfycam",
      "images": ["8", 0]
    }
  },
  "10": {
    "class_type": "LoadImage",
    "inputs": {
      "image": "example.png"
    }
  },
  "12": {
    "class_type": "VAEEncode",
    "inputs": {
      "pixels": ["10", 0],
      "vae": ["4", 2]
    }
  }
}`

// Graph is a prompt graph in ComfyUI API format.
type Graph struct {
	nodes map[string]json.RawMessage
}

// Default returns the embedded img2img graph.
func Default() *Graph {
	g, err := Parse([]byte(defaultGraph))
	if err != nil {
		// The embedded graph is a compile-time constant.
		panic(fmt.Sprintf("workflow: invalid embedded graph: %v", err))
	}
	return g
}

// Parse parses a prompt graph from API-format JSON.
func Parse(data []byte) (*Graph, error) {
	var nodes map[string]json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse workflow graph: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("workflow graph has no nodes")
	}
	return &Graph{nodes: nodes}, nil
}

// Load reads a prompt graph from a JSON file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// HasNode reports whether the graph contains the given node id.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	nodes := make(map[string]json.RawMessage, len(g.nodes))
	for id, raw := range g.nodes {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		nodes[id] = cp
	}
	return &Graph{nodes: nodes}
}

// SetNodeInput sets one input field on one node, leaving every other node
// untouched. The receiver is modified in place; callers wanting to keep the
// template pristine should Clone first.
func (g *Graph) SetNodeInput(nodeID, key string, value any) error {
	raw, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("workflow graph has no node %q", nodeID)
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("node %q is not an object: %w", nodeID, err)
	}

	var inputs map[string]any
	if rawInputs, ok := node["inputs"]; ok {
		if err := json.Unmarshal(rawInputs, &inputs); err != nil {
			return fmt.Errorf("node %q has malformed inputs: %w", nodeID, err)
		}
	} else {
		inputs = make(map[string]any)
	}
	inputs[key] = value

	encodedInputs, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs for node %q: %w", nodeID, err)
	}
	node["inputs"] = encodedInputs

	encodedNode, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode node %q: %w", nodeID, err)
	}
	g.nodes[nodeID] = encodedNode
	return nil
}

// WithInputImage returns a deep copy of the graph with the image input of the
// given node set to the uploaded artifact name.
func (g *Graph) WithInputImage(nodeID, imageName string) (*Graph, error) {
	out := g.Clone()
	if err := out.SetNodeInput(nodeID, "image", imageName); err != nil {
		return nil, err
	}
	return out, nil
}

// NodeInput reads one input field of one node. Returns nil if the node or
// field is absent.
func (g *Graph) NodeInput(nodeID, key string) any {
	raw, ok := g.nodes[nodeID]
	if !ok {
		return nil
	}
	var node struct {
		Inputs map[string]any `json:"inputs"`
	}
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	return node.Inputs[key]
}

// MarshalJSON encodes the graph back to API format.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.nodes)
}
